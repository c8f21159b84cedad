package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentx-labs/confshare/internal/jsontree"
	"github.com/agentx-labs/confshare/internal/versioning"
)

// SchemaError describes one structural problem in a manifest document.
type SchemaError struct {
	Field   string // dotted member path, e.g. "content.commands"
	Message string
	Keyword string // failing JSON Schema keyword in strict mode
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// topLevelKeys are the members every complete manifest carries.
var topLevelKeys = []string{
	"name", "version", "description", "author", "license",
	"repository", "content", "exclude", "apply", "metadata",
}

// Validate checks a raw manifest document and returns every problem found;
// an empty result means the document is valid. Absent core content kinds
// are filled in with empty lists as a side effect. Strict mode also
// requires every top-level key and checks the embedded JSON schema.
func Validate(doc *jsontree.Value, strict bool) []error {
	if !doc.IsObject() {
		return []error{&SchemaError{Message: "manifest must be a JSON object"}}
	}

	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &SchemaError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, field := range []string{"name", "version"} {
		v, ok := doc.Get(field)
		if !ok {
			add(field, "required field is missing")
			continue
		}
		s, isString := v.Str()
		switch {
		case !isString:
			add(field, "must be a string, got %s", v.Kind())
		case s == "":
			add(field, "must not be empty")
		}
	}

	if s, ok := doc.GetString("version"); ok && s != "" && !versioning.Valid(s) {
		add("version", "invalid version %q (want MAJOR.MINOR.PATCH[-PRERELEASE])", s)
	}

	for _, section := range []string{"content", "exclude"} {
		set, ok := doc.Get(section)
		if !ok {
			continue
		}
		if !set.IsObject() {
			add(section, "must be an object, got %s", set.Kind())
			continue
		}
		for _, kind := range Kinds {
			sel, ok := set.Get(string(kind))
			if !ok {
				if kind.IsCore() {
					set.Set(string(kind), jsontree.NewArray())
				}
				continue
			}
			field := section + "." + string(kind)
			if !sel.IsArray() {
				add(field, "must be a list, got %s", sel.Kind())
				continue
			}
			for i, item := range sel.Items() {
				name, ok := item.Str()
				if !ok {
					add(fmt.Sprintf("%s.%d", field, i), "must be a string, got %s", item.Kind())
					continue
				}
				// Exclude entries are patterns matched against names, never joined onto a root.
				if section == "content" {
					if err := CheckItemName(name); err != nil {
						add(fmt.Sprintf("%s.%d", field, i), "%v", err)
					}
				}
			}
		}
	}

	errs = append(errs, validateRecords(doc)...)

	if !strict {
		return errs
	}

	for _, key := range topLevelKeys {
		if !doc.Has(key) {
			add(key, "missing in strict mode")
		}
	}
	issues, err := schemaIssues(doc)
	if err != nil {
		return append(errs, err)
	}
	for _, issue := range issues {
		if !covered(errs, issue) {
			errs = append(errs, issue)
		}
	}
	return errs
}

// CheckItemName rejects content names that do not name a single entry
// directly under a kind's directory.
func CheckItemName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return fmt.Errorf("invalid item name %q", name)
	case strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) || filepath.VolumeName(name) != "":
		return fmt.Errorf("item name %q must not contain a path separator", name)
	}
	return nil
}

// validateRecords checks the names and paths held by apply records, which
// removal later joins onto each record's target.
func validateRecords(doc *jsontree.Value) []error {
	records, ok := doc.Get("apply")
	if !ok || !records.IsArray() {
		return nil
	}
	var errs []error
	for i, rec := range records.Items() {
		if !rec.IsObject() {
			continue
		}
		if content, ok := rec.Get("content"); ok && content.IsObject() {
			for _, kind := range content.Members() {
				for j, item := range kind.Value.Items() {
					name, ok := item.Str()
					if !ok {
						continue
					}
					if err := CheckItemName(name); err != nil {
						errs = append(errs, &SchemaError{
							Field:   fmt.Sprintf("apply.%d.content.%s.%d", i, kind.Key, j),
							Message: err.Error(),
						})
					}
				}
			}
		}
		files, ok := rec.Get("files")
		if !ok || !files.IsArray() {
			continue
		}
		for j, f := range files.Items() {
			path, _ := f.GetString("path")
			if !filepath.IsLocal(path) {
				errs = append(errs, &SchemaError{
					Field:   fmt.Sprintf("apply.%d.files.%d.path", i, j),
					Message: fmt.Sprintf("path %q must be relative and stay inside the target", path),
				})
			}
		}
	}
	return errs
}

// covered reports whether a schema finding repeats a hand-check result.
func covered(errs []error, issue *SchemaError) bool {
	if issue.Keyword == "required" && issue.Field == "" {
		return true
	}
	for _, err := range errs {
		if se, ok := err.(*SchemaError); ok && se.Field == issue.Field {
			return true
		}
	}
	return false
}

// Repair fixes what it can in a manifest document and reports whether
// anything changed. Invalid versions become 1.0.0, the legacy "plugin"
// member becomes "name", and missing members get empty defaults.
func Repair(doc *jsontree.Value) bool {
	if !doc.IsObject() {
		return false
	}
	changed := false

	if legacy, ok := doc.Get(legacyNameKey); ok {
		if name, _ := doc.GetString("name"); name == "" {
			if s, isString := legacy.Str(); isString {
				doc.Set("name", jsontree.NewString(s))
			}
		}
		doc.Delete(legacyNameKey)
		changed = true
	}

	if v, ok := doc.GetString("version"); !ok || !versioning.Valid(v) {
		doc.Set("version", jsontree.NewString(versioning.Default))
		changed = true
	}

	defaults := defaultDocument()
	for _, m := range defaults.Members() {
		current, ok := doc.Get(m.Key)
		if !ok || current.Kind() != m.Value.Kind() {
			doc.Set(m.Key, m.Value)
			changed = true
			continue
		}
		if current.IsObject() {
			for _, sub := range m.Value.Members() {
				if !current.Has(sub.Key) {
					current.Set(sub.Key, sub.Value)
					changed = true
				}
			}
		}
	}
	return changed
}

// defaultDocument returns the document form of a freshly created manifest.
func defaultDocument() *jsontree.Value {
	doc, err := jsontree.From(Create("", versioning.Default, "", "", ""))
	if err != nil {
		panic(err)
	}
	return doc
}
