package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FileName is the manifest file stored at the root of every bundle.
const FileName = "share_plugins.json"

// DefaultLicense is applied when a manifest is created without a license.
const DefaultLicense = "MIT"

// Kind names a category of shareable content.
type Kind string

// Content kind constants. Skills are optional and only written when selected.
const (
	Commands Kind = "commands"
	Agents   Kind = "agents"
	Hooks    Kind = "hooks"
	MCP      Kind = "mcp"
	Skills   Kind = "skills"
)

// CoreKinds are always present in a manifest's content and exclude maps.
var CoreKinds = []Kind{Commands, Agents, Hooks, MCP}

// Kinds lists every content kind in canonical order.
var Kinds = []Kind{Commands, Agents, Hooks, MCP, Skills}

// IsCore reports whether k must always be present.
func (k Kind) IsCore() bool {
	for _, c := range CoreKinds {
		if c == k {
			return true
		}
	}
	return false
}

// Single-file content kinds are stored under fixed names.
const (
	HooksFile = "hooks.json"
	MCPFile   = "mcp.json"
)

// AllItems is the sentinel selecting every available item of a kind.
const AllItems = "all"

// Selection is either the "all" sentinel or an ordered list of item names.
// On disk the sentinel is written as ["all"].
type Selection struct {
	All   bool
	Items []string
}

// SelectAll returns the sentinel selection.
func SelectAll() Selection { return Selection{All: true} }

// Select returns a selection naming specific items.
func Select(items ...string) Selection {
	return Selection{Items: append([]string(nil), items...)}
}

// ParseSelection reads a command-line selection: "all", a comma-separated
// list, or an empty string for nothing.
func ParseSelection(s string) Selection {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selection{}
	}
	if strings.EqualFold(s, AllItems) {
		return SelectAll()
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return Selection{Items: items}
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool { return !s.All && len(s.Items) == 0 }

// Contains reports whether name is selected.
func (s Selection) Contains(name string) bool {
	if s.All {
		return true
	}
	for _, item := range s.Items {
		if item == name {
			return true
		}
	}
	return false
}

// Strings returns the on-disk list form.
func (s Selection) Strings() []string {
	if s.All {
		return []string{AllItems}
	}
	if s.Items == nil {
		return []string{}
	}
	return s.Items
}

func (s Selection) String() string {
	if s.All {
		return AllItems
	}
	if len(s.Items) == 0 {
		return "-"
	}
	return strings.Join(s.Items, ", ")
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = ParseSelection(single)
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("selection must be \"all\" or a list of names: %w", err)
	}
	if len(items) == 1 && items[0] == AllItems {
		*s = SelectAll()
		return nil
	}
	*s = Selection{Items: items}
	return nil
}

// ContentSet maps content kinds to selections.
type ContentSet map[Kind]Selection

// NewContentSet returns a set with every core kind selecting nothing.
func NewContentSet() ContentSet {
	c := ContentSet{}
	for _, k := range CoreKinds {
		c[k] = Selection{}
	}
	return c
}

// Get returns the selection for a kind, empty when absent.
func (c ContentSet) Get(k Kind) Selection {
	return c[k]
}

// Empty reports whether no kind selects anything.
func (c ContentSet) Empty() bool {
	for _, sel := range c {
		if !sel.Empty() {
			return false
		}
	}
	return true
}

// MarshalJSON writes kinds in canonical order. Core kinds are always
// written; skills only when selected.
func (c ContentSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, k := range Kinds {
		sel, ok := c[k]
		if !k.IsCore() && (!ok || sel.Empty()) {
			continue
		}
		data, err := sel.MarshalJSON()
		if err != nil {
			return nil, err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&buf, "%q:", string(k))
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *ContentSet) UnmarshalJSON(data []byte) error {
	var raw map[string]Selection
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	set := NewContentSet()
	for key, sel := range raw {
		set[Kind(key)] = sel
	}
	*c = set
	return nil
}

// RepoType identifies the hosting service behind a repository URL.
type RepoType string

const (
	RepoGitHub RepoType = "github"
	RepoGitLab RepoType = "gitlab"
	RepoCustom RepoType = "custom"
	RepoNone   RepoType = "none"
)

// ParseRepoType validates a repository kind name.
func ParseRepoType(s string) (RepoType, error) {
	switch t := RepoType(strings.ToLower(s)); t {
	case RepoGitHub, RepoGitLab, RepoCustom, RepoNone:
		return t, nil
	}
	return "", fmt.Errorf("invalid repository type %q (want github, gitlab, custom, or none)", s)
}

// Repository records where a bundle is published.
type Repository struct {
	Type RepoType `json:"type"`
	URL  string   `json:"url"`
}

// HooksMode selects how a bundle's hooks reach the target hooks file.
type HooksMode string

const (
	HooksSmart   HooksMode = "smart"
	HooksReplace HooksMode = "replace"
	HooksSkip    HooksMode = "skip"
)

// ParseHooksMode validates a hooks mode name.
func ParseHooksMode(s string) (HooksMode, error) {
	switch m := HooksMode(strings.ToLower(s)); m {
	case HooksSmart, HooksReplace, HooksSkip:
		return m, nil
	}
	return "", fmt.Errorf("invalid hooks mode %q (want smart, replace, or skip)", s)
}

// Metadata holds bookkeeping timestamps and the packed file count.
type Metadata struct {
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
	FileCount int       `json:"file_count"`
}

// AppliedFile is one item a bundle wrote into a target root.
type AppliedFile struct {
	Kind Kind   `json:"kind"`
	Name string `json:"name"`
	Path string `json:"path"` // relative to the record's target; differs from the item's own path after a rename
}

// ApplyRecord describes one materialization of a bundle into a target root.
// Content is the selection that was actually written. Files is nil only for
// records written by older tooling, which did not track paths.
type ApplyRecord struct {
	Target    string        `json:"target"`
	Content   ContentSet    `json:"content"`
	Exclude   ContentSet    `json:"exclude"`
	HooksMode HooksMode     `json:"hooks_mode"`
	AppliedAt Timestamp     `json:"applied_at"`
	Version   string        `json:"version"`
	Files     []AppliedFile `json:"files"`
}

// Tracked reports whether the record lists the paths it wrote.
func (r ApplyRecord) Tracked() bool {
	return r.Files != nil
}

// UnmarshalJSON also accepts the field names written by older tooling.
func (r *ApplyRecord) UnmarshalJSON(data []byte) error {
	type plain ApplyRecord
	var aux struct {
		plain
		ProjectFilePath string     `json:"project_file_path"`
		ExcludeContent  ContentSet `json:"exclude_content"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = ApplyRecord(aux.plain)
	if r.Target == "" {
		r.Target = aux.ProjectFilePath
	}
	if r.Exclude == nil && aux.ExcludeContent != nil {
		r.Exclude = aux.ExcludeContent
	}
	return nil
}

// Manifest is the descriptor of a shareable bundle, stored as FileName.
type Manifest struct {
	Name        string        `json:"name"`
	Version     string        `json:"version"`
	Description string        `json:"description"`
	Author      string        `json:"author"`
	License     string        `json:"license"`
	Repository  Repository    `json:"repository"`
	Content     ContentSet    `json:"content"`
	Exclude     ContentSet    `json:"exclude"`
	Apply       []ApplyRecord `json:"apply"`
	Metadata    Metadata      `json:"metadata"`
}

// IsPublished reports whether the manifest names a remote repository.
func (m *Manifest) IsPublished() bool {
	return m.Repository.URL != ""
}

// Timestamp is a time that reads both RFC 3339 and zone-less ISO 8601
// values and writes RFC 3339. The zero value is written as "".
type Timestamp struct {
	time.Time
}

// At wraps t as a Timestamp truncated to whole seconds.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t.Truncate(time.Second)}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp reads any layout Timestamp accepts.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
