// Package device enumerates candidate storage devices for
// cmd/ntfsboot-tui's device picker. Trimmed from
// shubham030-recovery/internal/device's file-carving picker - which
// also tracked mountpoints and removable-media status for a "pick what
// to scan for deleted files" flow - down to what this engine's picker
// actually shows: a path, a display name, and a human-readable size.
// The rebuild engine only needs to resolve "the device the operator
// picked" to a path diskio.Open can take; mountpoint/removable status
// has no consumer here.
package device

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Device is one candidate block device or disk image.
type Device struct {
	Path       string
	Name       string
	Size       int64
	SizeHuman  string
	Filesystem string
}

// List returns available storage devices for the current OS.
func List() ([]Device, error) {
	switch runtime.GOOS {
	case "darwin":
		return listDarwin()
	case "linux":
		return listLinux()
	case "windows":
		return listWindows()
	default:
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

func listLinux() ([]Device, error) {
	cmd := exec.Command("lsblk", "-b", "-o", "NAME,SIZE,FSTYPE", "-n", "-l")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run lsblk: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		name := parts[0]
		sizeBytes, _ := strconv.ParseInt(parts[1], 10, 64)
		fsType := ""
		if len(parts) >= 3 {
			fsType = parts[2]
		}
		devices = append(devices, Device{
			Path:       "/dev/" + name,
			Name:       name,
			Size:       sizeBytes,
			SizeHuman:  humanize.IBytes(uint64(sizeBytes)),
			Filesystem: fsType,
		})
	}
	return devices, nil
}

// listDarwin parses `diskutil list`'s plain-text table. Each
// partition/disk line ends in its BSD device identifier (diskXsY or
// diskX), which is all the picker needs to build a /dev path; the size
// column is parsed for display, falling back to a humanized byte count
// derived from it.
func listDarwin() ([]Device, error) {
	cmd := exec.Command("diskutil", "list")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run diskutil: %w", err)
	}

	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "/dev/") || strings.HasPrefix(line, "#:") {
			continue
		}

		parts := strings.Fields(line)
		deviceID := ""
		for _, p := range parts {
			if strings.HasPrefix(p, "disk") {
				deviceID = p
			}
		}
		if deviceID == "" {
			continue
		}

		var sizeBytes int64
		for i, p := range parts {
			if i+1 >= len(parts) {
				continue
			}
			if unit := parts[i+1]; unit == "KB" || unit == "MB" || unit == "GB" || unit == "TB" || unit == "B" {
				sizeBytes = parseSize(p, unit)
				break
			}
		}

		devices = append(devices, Device{
			Path:      "/dev/" + deviceID,
			Name:      deviceID,
			Size:      sizeBytes,
			SizeHuman: humanize.IBytes(uint64(sizeBytes)),
		})
	}
	return devices, nil
}

func listWindows() ([]Device, error) {
	cmd := exec.Command("powershell", "-Command",
		"Get-Disk | Select-Object Number,FriendlyName,Size | ConvertTo-Json")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run Get-Disk: %w", err)
	}

	var devices []Device
	lines := strings.Split(string(output), "\n")
	for i, line := range lines {
		if !strings.Contains(line, "Number") {
			continue
		}
		numStr := strings.Trim(strings.TrimSpace(strings.Split(line, ":")[1]), ",")
		num, _ := strconv.Atoi(numStr)

		name := "Unknown"
		if i+1 < len(lines) && strings.Contains(lines[i+1], "FriendlyName") {
			name = strings.Trim(strings.TrimSpace(strings.Split(lines[i+1], ":")[1]), `",`)
		}

		devices = append(devices, Device{
			Path:      fmt.Sprintf(`\\.\PhysicalDrive%d`, num),
			Name:      name,
			SizeHuman: "Unknown",
		})
	}
	return devices, nil
}

func parseSize(value, unit string) int64 {
	v, _ := strconv.ParseFloat(value, 64)
	switch unit {
	case "B":
		return int64(v)
	case "KB":
		return int64(v * 1024)
	case "MB":
		return int64(v * 1024 * 1024)
	case "GB":
		return int64(v * 1024 * 1024 * 1024)
	case "TB":
		return int64(v * 1024 * 1024 * 1024 * 1024)
	}
	return 0
}
