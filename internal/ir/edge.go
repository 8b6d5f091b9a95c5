package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagPattern  = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)
	namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// EdgeRef is a parsed "TAG:index:name" edge reference.
// An untagged reference has an empty Tag.
type EdgeRef struct {
	Tag   string `json:"tag,omitempty"`
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// TagIndex identifies one port of a node: a tag and an index within it.
type TagIndex struct {
	Tag   string `json:"tag,omitempty"`
	Index int    `json:"index"`
}

// EdgeError reports a malformed edge string or port list.
type EdgeError struct {
	Value   string
	Message string
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("edge %q: %s", e.Value, e.Message)
}

// TagIndex returns the port the reference binds to.
func (r EdgeRef) TagIndex() TagIndex {
	return TagIndex{Tag: r.Tag, Index: r.Index}
}

// String renders the shortest form that parses back to the same port
// when the reference keeps its position in the list.
func (r EdgeRef) String() string {
	switch {
	case r.Tag == "":
		return r.Name
	case r.Index == 0:
		return r.Tag + ":" + r.Name
	default:
		return r.Tag + ":" + strconv.Itoa(r.Index) + ":" + r.Name
	}
}

func (t TagIndex) String() string {
	if t.Tag == "" {
		return ":" + strconv.Itoa(t.Index)
	}
	return t.Tag + ":" + strconv.Itoa(t.Index)
}

// ParseEdgeRef parses one of "name", "TAG:name" or "TAG:index:name".
// explicit reports whether the string carried an index. Untagged refs get
// their index from ParseEdgeList.
func ParseEdgeRef(s string) (ref EdgeRef, explicit bool, err error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 1:
		ref.Name = parts[0]
	case 2:
		ref.Tag, ref.Name = parts[0], parts[1]
	case 3:
		ref.Tag, ref.Name = parts[0], parts[2]
		idx, convErr := strconv.Atoi(parts[1])
		if convErr != nil || idx < 0 {
			return EdgeRef{}, false, &EdgeError{Value: s, Message: "index must be a non-negative integer"}
		}
		ref.Index = idx
		explicit = true
	default:
		return EdgeRef{}, false, &EdgeError{Value: s, Message: "expected name, TAG:name or TAG:index:name"}
	}

	if len(parts) > 1 && !tagPattern.MatchString(ref.Tag) {
		return EdgeRef{}, false, &EdgeError{Value: s, Message: "tag must match [A-Z_][A-Z0-9_]*"}
	}
	if !namePattern.MatchString(ref.Name) {
		return EdgeRef{}, false, &EdgeError{Value: s, Message: "name must match [A-Za-z_][A-Za-z0-9_]*"}
	}
	return ref, explicit, nil
}

// ParseEdgeList parses one port list (for example a node's input_stream
// entries). Untagged entries are numbered by position. Every (tag, index)
// pair must be unique and each tag's indices must run 0..n-1.
func ParseEdgeList(items []string) ([]EdgeRef, error) {
	refs := make([]EdgeRef, 0, len(items))
	seen := make(map[TagIndex]bool, len(items))
	maxIndex := make(map[string]int)
	count := make(map[string]int)
	untagged := 0

	for _, item := range items {
		ref, _, err := ParseEdgeRef(item)
		if err != nil {
			return nil, err
		}
		if ref.Tag == "" {
			ref.Index = untagged
			untagged++
		}
		if seen[ref.TagIndex()] {
			return nil, &EdgeError{Value: item, Message: fmt.Sprintf("port %s is bound more than once", ref.TagIndex())}
		}
		seen[ref.TagIndex()] = true
		count[ref.Tag]++
		maxIndex[ref.Tag] = max(maxIndex[ref.Tag], ref.Index)
		refs = append(refs, ref)
	}

	for tag, n := range count {
		if maxIndex[tag] != n-1 {
			return nil, &EdgeError{
				Value:   tag,
				Message: fmt.Sprintf("indices for tag must be contiguous from 0, got max %d for %d entries", maxIndex[tag], n),
			}
		}
	}
	return refs, nil
}

// ParseTagIndex parses "TAG", "TAG:index" or ":index".
func ParseTagIndex(s string) (TagIndex, error) {
	tag, idxStr, hasIndex := strings.Cut(s, ":")
	ti := TagIndex{Tag: tag}
	if hasIndex {
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 0 {
			return TagIndex{}, &EdgeError{Value: s, Message: "index must be a non-negative integer"}
		}
		ti.Index = idx
	}
	if tag == "" && !hasIndex {
		return TagIndex{}, &EdgeError{Value: s, Message: "empty tag_index"}
	}
	if tag != "" && !tagPattern.MatchString(tag) {
		return TagIndex{}, &EdgeError{Value: s, Message: "tag must match [A-Z_][A-Z0-9_]*"}
	}
	return ti, nil
}

// IsValidName reports whether s is a legal edge or node identifier.
func IsValidName(s string) bool {
	return namePattern.MatchString(s)
}
