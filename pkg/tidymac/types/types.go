// Package types provides core data types for the tidymac cleanup engine.
// It includes the file records produced by the walker, the classified
// inventory consumed by the cleaner, duplicate groups, and the shared
// size-formatting vocabulary.
package types

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// FileKind tags the filesystem object type of a FileRecord.
type FileKind int

// File kinds produced by the walker.
const (
	KindRegular FileKind = iota
	KindDir
	KindSymlink
	KindOther
)

// String returns the string representation of the kind.
func (k FileKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDir:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// FileRecord is a single filesystem entry observed during a walk.
// Records are ephemeral: the walker produces them and the classifier
// drops them once folded into inventory items.
type FileRecord struct {
	// Path is the absolute path to the entry.
	Path string `json:"path"`

	// Size is the entry size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time.
	ModTime time.Time `json:"mod_time"`

	// Kind is the filesystem object type.
	Kind FileKind `json:"kind"`
}

// SafetyLabel is the user-facing deletion judgment attached to an
// inventory item. It is independent of whether the path is technically
// deletable; the safety guard decides that.
type SafetyLabel int

// Safety labels, ordered from most to least routine.
const (
	// Safe items are routinely removed.
	Safe SafetyLabel = iota
	// Caution items warrant review before removal.
	Caution
	// Dangerous items are never auto-selected; shown for transparency.
	Dangerous
)

// String returns the display form of the label.
func (s SafetyLabel) String() string {
	switch s {
	case Safe:
		return "Safe"
	case Caution:
		return "Caution"
	case Dangerous:
		return "Dangerous"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the label as its lowercase string form.
func (s SafetyLabel) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strings.ToLower(s.String()))), nil
}

// UnmarshalJSON parses the lowercase string form.
func (s *SafetyLabel) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return err
	}
	label, err := ParseSafetyLabel(str)
	if err != nil {
		return err
	}
	*s = label
	return nil
}

// ErrInvalidLabel indicates an unrecognized safety label string.
var ErrInvalidLabel = errors.New("invalid safety label")

// ParseSafetyLabel parses a label from its string form.
func ParseSafetyLabel(s string) (SafetyLabel, error) {
	switch strings.ToLower(s) {
	case "safe":
		return Safe, nil
	case "caution":
		return Caution, nil
	case "dangerous":
		return Dangerous, nil
	default:
		return Safe, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
}

// Mode selects how the cleaner disposes of files.
type Mode string

// Cleaner modes.
const (
	// ModePreview mutates nothing and reports would-be totals.
	ModePreview Mode = "preview"
	// ModeSoft stages files for time-bounded undo.
	ModeSoft Mode = "soft"
	// ModeHard unlinks files directly; undo rejects hard sessions.
	ModeHard Mode = "hard"
)

// ErrInvalidMode indicates an unrecognized mode string.
var ErrInvalidMode = errors.New("invalid clean mode")

// ParseMode parses a cleaner mode from its string form.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModePreview, ModeSoft, ModeHard:
		return Mode(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// InventoryItem is a named aggregate produced by classification.
type InventoryItem struct {
	// Name is the display name, unique within an inventory.
	Name string `json:"name"`

	// Category groups items for presentation (e.g. "Cache", "Dev: npm").
	Category string `json:"category"`

	// Path is the representative path for the item.
	Path string `json:"path"`

	// Paths lists every contributing path when more than one exists.
	Paths []string `json:"paths,omitempty"`

	// Bytes is the total reclaimable size.
	Bytes int64 `json:"bytes"`

	// FileCount is the number of contributing files.
	FileCount int `json:"file_count"`

	// Safety is the deletion judgment for the whole item.
	Safety SafetyLabel `json:"safety"`

	// Reason explains why the item is flagged, in user-facing terms.
	Reason string `json:"reason"`
}

// BytesFormatted returns the item size in the shared display vocabulary.
func (i *InventoryItem) BytesFormatted() string {
	return FormatSize(i.Bytes)
}

// ScanError pairs a path with a non-fatal error encountered during
// scanning. Scan errors never abort a scan.
type ScanError struct {
	Path  string `json:"path,omitempty"`
	Error string `json:"error"`
}

// Inventory is the ordered result of a scan: Safe items first by
// descending bytes, then Caution, then Dangerous, names breaking ties.
type Inventory struct {
	// Profile is the name of the profile that drove the scan.
	Profile string `json:"profile"`

	// Items is the ordered item sequence.
	Items []InventoryItem `json:"items"`

	// TotalBytes equals the sum of item bytes.
	TotalBytes int64 `json:"total_bytes"`

	// TotalFiles equals the sum of item file counts.
	TotalFiles int `json:"total_files"`

	// Elapsed is the wall-clock scan duration.
	Elapsed time.Duration `json:"elapsed"`

	// Errors holds the ordered non-fatal errors from the scan.
	Errors []ScanError `json:"errors,omitempty"`
}

// Recalculate rebuilds the totals from the item list.
func (inv *Inventory) Recalculate() {
	inv.TotalBytes = 0
	inv.TotalFiles = 0
	for _, item := range inv.Items {
		inv.TotalBytes += item.Bytes
		inv.TotalFiles += item.FileCount
	}
}

// Item returns the named item, or nil when absent.
func (inv *Inventory) Item(name string) *InventoryItem {
	for i := range inv.Items {
		if inv.Items[i].Name == name {
			return &inv.Items[i]
		}
	}
	return nil
}

// MatchKind distinguishes exact duplicate groups from perceptual ones.
type MatchKind string

// Duplicate match kinds.
const (
	// MatchExact groups byte-identical files (stage-3 confirmed).
	MatchExact MatchKind = "identical"
	// MatchSimilar groups visually similar images (stage-4).
	MatchSimilar MatchKind = "visually similar"
)

// DuplicateGroup is a set of paths sharing an identity key.
type DuplicateGroup struct {
	// Paths are the group members, sorted lexicographically. The
	// keeper is one of them and may sit at any position.
	Paths []string `json:"paths"`

	// SizeBytes is the common byte size of each member.
	SizeBytes int64 `json:"size_bytes"`

	// Keep is the member selected to survive by policy.
	Keep string `json:"keep"`

	// Match reports how the group was identified.
	Match MatchKind `json:"match"`

	// Digest is the full-content SHA-256 for exact groups.
	Digest string `json:"digest,omitempty"`
}

// Reclaimable returns the bytes freed by removing all but the keeper.
func (g *DuplicateGroup) Reclaimable() int64 {
	if len(g.Paths) < 2 {
		return 0
	}
	return int64(len(g.Paths)-1) * g.SizeBytes
}

// sizePattern matches size strings like "100M", "2G", "1.5GiB".
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that a size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates a negative size value.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string into bytes.
// Supported forms: "1024", "512B", "100K", "50MiB", "2G", "1.5GB".
// Decimal values are truncated to the nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a byte count to a human-readable IEC string.
// Bytes print as integers, KiB with one decimal, MiB and above with two.
//
// Examples:
//   - FormatSize(0) returns "0 B"
//   - FormatSize(1536) returns "1.5 KiB"
//   - FormatSize(10240000) returns "9.77 MiB"
func FormatSize(bytes int64) string {
	switch {
	case bytes >= TiB:
		return fmt.Sprintf("%.2f TiB", float64(bytes)/float64(TiB))
	case bytes >= GiB:
		return fmt.Sprintf("%.2f GiB", float64(bytes)/float64(GiB))
	case bytes >= MiB:
		return fmt.Sprintf("%.2f MiB", float64(bytes)/float64(MiB))
	case bytes >= KiB:
		return fmt.Sprintf("%.1f KiB", float64(bytes)/float64(KiB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDuration renders a duration compactly: "500ms", "3.7s", "2m 5s".
func FormatDuration(d time.Duration) string {
	secs := d.Seconds()
	switch {
	case secs < 1.0:
		return fmt.Sprintf("%.0fms", secs*1000)
	case secs < 60.0:
		return fmt.Sprintf("%.1fs", secs)
	default:
		mins := int(secs / 60)
		return fmt.Sprintf("%dm %.0fs", mins, secs-float64(mins)*60)
	}
}

// DisplayPath shortens a path for display, replacing the home directory
// prefix with "~".
func DisplayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}
	return path
}
