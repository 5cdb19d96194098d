package paths

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"
)

var illegalPathChars = regexp.MustCompile(`[\\/<>:"|?*\x00-\x1F]`)

// Level is one tier (section, module or video) of a path request: its 0-based index and
// its name. A tier is present only when it has both an index and a name, an empty name
// included; a missing tier also drops every tier below it.
type Level struct {
	Index int
	Name  string

	named bool
}

// None is an absent tier.
var None = Level{Index: -1}

// At builds a Level with both an index and a name.
func At(index int, name string) Level {
	return Level{Index: index, Name: name, named: true}
}

// Unnamed builds a Level that has an index but no name.
func Unnamed(index int) Level {
	return Level{Index: index}
}

func (l Level) present() bool {
	return l.Index >= 0 && l.named
}

// identity is the memo key: the indices of the tiers that made it into the path,
// -1 for the ones that did not.
type identity struct {
	section, module, video int
}

// Deriver computes stable destination paths for one course run. Paths are memoized by
// (section, module, video) identity; the flatten flag, output root and course name are
// fixed for the lifetime of a Deriver.
type Deriver struct {
	flatten bool
	output  string
	course  string
	memo    *lru.Cache[identity, string]

	computed atomic.Int64
}

// NewDeriver creates a Deriver. memoSize bounds the memo; entries beyond it are simply
// recomputed, which yields the same string because derivation is pure.
func NewDeriver(flatten bool, output, courseName string, memoSize int) (*Deriver, error) {
	memo, err := lru.New[identity, string](memoSize)
	if err != nil {
		return nil, fmt.Errorf("create path memo: %w", err)
	}
	return &Deriver{
		flatten: flatten,
		output:  output,
		course:  SanitizeName(courseName),
		memo:    memo,
	}, nil
}

// Flatten reports whether the deriver collapses the hierarchy into suffixed names.
func (d *Deriver) Flatten() bool {
	return d.flatten
}

// Course returns the course-level path.
func (d *Deriver) Course() string {
	return d.Derive(None, None, None)
}

// Derive returns the path for the given tiers. Tiers are appended only as deep as the
// shallower tiers are present.
func (d *Deriver) Derive(section, module, video Level) string {
	key := identity{section: -1, module: -1, video: -1}
	if section.present() {
		key.section = section.Index
		if module.present() {
			key.module = module.Index
			if video.present() {
				key.video = video.Index
			}
		}
	}

	if p, ok := d.memo.Get(key); ok {
		return p
	}
	p := d.build(key, section, module, video)
	d.memo.Add(key, p)
	return p
}

func (d *Deriver) build(key identity, section, module, video Level) string {
	d.computed.Add(1)

	p := d.output
	if d.course == "" {
		return p
	}
	p = filepath.Join(p, d.course)

	// Indices become 1-based here and nowhere else.
	if key.section < 0 {
		return p
	}
	p = d.appendTier(p, key.section+1, SanitizeName(section.Name))

	if key.module < 0 {
		return p
	}
	p = d.appendTier(p, key.module+1, SanitizeName(module.Name))

	if key.video < 0 {
		return p
	}
	name := SanitizeVideoName(video.Name)
	if d.flatten {
		return filepath.Clean(fmt.Sprintf("%s - %d - %s", p, key.video+1, name))
	}
	return filepath.Join(p, fmt.Sprintf("%d. %s", key.video+1, name))
}

func (d *Deriver) appendTier(p string, number int, name string) string {
	if d.flatten {
		return filepath.Clean(fmt.Sprintf("%s - %d", p, number))
	}
	return filepath.Join(p, strings.TrimSpace(fmt.Sprintf("%d. %s", number, name)))
}

// SanitizeName strips characters that are illegal in file names on common filesystems.
func SanitizeName(name string) string {
	return strings.TrimSpace(illegalPathChars.ReplaceAllString(norm.NFC.String(name), ""))
}

// SanitizeVideoName is SanitizeName, except colons become dashes ("Part 1: Intro" -> "Part 1- Intro").
func SanitizeVideoName(name string) string {
	return SanitizeName(strings.ReplaceAll(name, ":", "-"))
}
