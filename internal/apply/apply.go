// Package apply implements the diff-and-write confirmation protocol of
// spec.md §4.7 as a pure state machine consuming an event stream
// (Dump | List | Write | Quit | NoConfirm), per the design notes'
// instruction to factor the original's parallel CLI/curses menus into
// one testable core with scripted and interactive adapters.
package apply

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shubham/ntfsboot/internal/hexdump"
	"github.com/shubham/ntfsboot/internal/overlay"
)

// Event is one token of the apply protocol's event stream.
type Event int

const (
	EventDump Event = iota
	EventList
	EventWrite
	EventQuit
	EventNoConfirm
)

// Disk is the read/write/sync surface the applier needs.
type Disk interface {
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	Sync() error
	SectorSize() uint32
}

// DirLister previews a speculative boot sector's root directory
// through the overlay-wrapped disk; internal/rebuild builds one by
// wrapping internal/dirpreview.List with the resolved geometry.
type DirLister func(disk overlay.Disk) ([]string, error)

// Applier holds everything one rebuild's apply step needs: the newly
// composed sector, where to write it, and the collaborators (logger,
// directory lister) it reports through.
type Applier struct {
	Disk            Disk
	PartitionOffset int64
	PartitionSize   int64
	Composed        []byte // the new, composed boot sector (Size bytes)
	Log             zerolog.Logger
	Lister          DirLister
}

// State carries the only thing that must survive across events in one
// run: whether NoConfirm has made Write sticky-approved.
type State struct {
	NoConfirmSticky bool
}

// WriteResult records the outcome of the two boot-sector writes plus
// the sync call, for S6's "two writes then one sync" assertion.
type WriteResult struct {
	PrimaryOffset int64
	BackupOffset  int64
	PrimaryErr    error
	BackupErr     error
	SyncErr       error
}

func (a *Applier) backupOffset() int64 {
	return a.PartitionOffset + a.PartitionSize - int64(a.Disk.SectorSize())
}

// readCurrent reads the disk's current primary boot sector. A read
// failure is treated as "original sector is zero-filled" per spec.md
// §4.6, not surfaced as an error here - the composer already applied
// that rule when building Composed.
func (a *Applier) readCurrent() []byte {
	buf := make([]byte, len(a.Composed))
	if err := a.Disk.ReadAt(buf, a.PartitionOffset); err != nil {
		return make([]byte, len(a.Composed))
	}
	return buf
}

// Dump renders the diff: a single "identical" line if the composed
// sector already matches what's on disk, otherwise a dual-column hex
// dump of new vs. current.
func (a *Applier) Dump() string {
	current := a.readCurrent()
	if bytes.Equal(current, a.Composed) {
		return "identical\n"
	}
	return hexdump.DiffDump(a.Composed, current)
}

// List previews the root directory through a read-redirect overlay
// that serves Composed for reads of the boot-sector region, scoped
// strictly to this call - the overlay is discarded the moment List
// returns, satisfying spec.md §5's "removal on every exit path"
// guarantee without any global state.
func (a *Applier) List() ([]string, error) {
	if a.Lister == nil {
		return nil, fmt.Errorf("apply: no directory lister configured")
	}
	var entries []string
	var err error
	overlay.Scoped(a.Disk, a.PartitionOffset, a.Composed, func(d overlay.Disk) {
		entries, err = a.Lister(d)
	})
	return entries, err
}

// Write performs the two writes (primary, backup) and the sync call
// of spec.md §4.7: each write failure is reported but does not abort
// the sibling write, and sync always runs.
func (a *Applier) Write() WriteResult {
	res := WriteResult{
		PrimaryOffset: a.PartitionOffset,
		BackupOffset:  a.backupOffset(),
	}

	res.PrimaryErr = a.Disk.WriteAt(a.Composed, res.PrimaryOffset)
	if res.PrimaryErr != nil {
		a.Log.Error().Err(res.PrimaryErr).Int64("offset", res.PrimaryOffset).Msg("failed to write primary boot sector")
	}

	res.BackupErr = a.Disk.WriteAt(a.Composed, res.BackupOffset)
	if res.BackupErr != nil {
		a.Log.Error().Err(res.BackupErr).Int64("offset", res.BackupOffset).Msg("failed to write backup boot sector")
	}

	res.SyncErr = a.Disk.Sync()
	if res.SyncErr != nil {
		a.Log.Error().Err(res.SyncErr).Msg("failed to sync disk after boot sector write")
	}
	return res
}

// Handle executes a single event against the state machine. confirmed
// is the interactive adapter's "user pressed W" signal; the headless
// adapter always passes false and relies on state.NoConfirmSticky
// instead. Returns quit=true once a Quit event is handled.
func (a *Applier) Handle(ev Event, confirmed bool, state *State) (quit bool) {
	switch ev {
	case EventNoConfirm:
		state.NoConfirmSticky = true
	case EventDump:
		a.Log.Info().Msg(a.Dump())
	case EventList:
		entries, err := a.List()
		if err != nil {
			a.Log.Warn().Err(err).Msg("directory preview unavailable")
		} else {
			a.Log.Info().Strs("entries", entries).Msg("root directory preview")
		}
	case EventWrite:
		if state.NoConfirmSticky || confirmed {
			a.Write()
		} else {
			a.Log.Warn().Msg("write requires confirmation; skipped")
		}
	case EventQuit:
		return true
	}
	return false
}

// ParseCommandStream splits a comma-separated headless command string
// into events. Leading/empty tokens (from leading or doubled commas)
// are skipped. An unrecognized verb stops parsing and reports ok=false,
// carrying only the events parsed before it.
func ParseCommandStream(s string) (events []Event, ok bool) {
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		switch tok {
		case "dump":
			events = append(events, EventDump)
		case "list":
			events = append(events, EventList)
		case "noconfirm":
			events = append(events, EventNoConfirm)
		case "write":
			events = append(events, EventWrite)
		default:
			return events, false
		}
	}
	return events, true
}

// RunHeadless drives the state machine from a comma-token command
// stream, matching spec.md §4.7's headless interface: "write" requires
// a prior "noconfirm" token, and an unknown token causes the whole run
// to return without writing anything.
func (a *Applier) RunHeadless(cmdline string) {
	events, ok := ParseCommandStream(cmdline)
	if !ok {
		a.Log.Warn().Str("cmdline", cmdline).Msg("unrecognized command token; aborting without write")
		return
	}
	state := &State{}
	for _, ev := range events {
		if a.Handle(ev, false, state) {
			return
		}
	}
}
