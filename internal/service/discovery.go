package service

import (
	"strings"

	"codegardener/internal/repository"
)

// Discovery pagination and sorting bounds. DefaultPageSize is applied by the
// handler when no size is requested; BuildPostFilter only clamps.
const (
	DefaultPageSize = 20
	maxPageSize     = 50

	SortLatest   = "latest"
	SortViews    = "views"
	SortFeedback = "feedback"
)

// DiscoverInput is the raw, untrusted discovery request. Tag filters arrive
// both as repeated query params and as CSV strings; both forms are merged.
type DiscoverInput struct {
	Keyword      string
	Langs        []string
	LangCSV      string
	Stacks       []string
	StackCSV     string
	ContentsType *bool
	Sort         string
	Page         int
	Size         int
}

// NormalizeCSV canonicalizes a free-form CSV tag string: entries are trimmed,
// lowercased, deduplicated (first occurrence wins), and rejoined without
// spaces. An input with no usable entries yields the empty string.
func NormalizeCSV(raw string) string {
	return strings.Join(mergeFilterValues(nil, raw), ",")
}

// mergeFilterValues combines explicit values with CSV entries into one
// trimmed, lowercased, deduplicated list, preserving first-seen order.
func mergeFilterValues(values []string, csv string) []string {
	merged := make([]string, 0, len(values))
	seen := make(map[string]struct{})

	add := func(v string) {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		merged = append(merged, v)
	}

	for _, v := range values {
		add(v)
	}
	for _, v := range strings.Split(csv, ",") {
		add(v)
	}
	return merged
}

// escapePattern backslash-escapes every rune that is not a letter, digit,
// underscore, or hyphen so tag values cannot smuggle regex syntax.
func escapePattern(v string) string {
	var b strings.Builder
	for _, r := range v {
		isWord := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_' || r == '-'
		if !isWord {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// listToPattern builds an anchored POSIX regex matching any of the values as
// a whole CSV entry: (^|,)(v1|v2)(,|$). Anchoring on entry boundaries keeps
// "java" from matching "javascript". Empty input yields the empty string.
func listToPattern(values []string) string {
	if len(values) == 0 {
		return ""
	}
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escapePattern(v)
	}
	return "(^|,)(" + strings.Join(escaped, "|") + ")(,|$)"
}

// buildLikeParam prepares a keyword for a case-insensitive LIKE: trimmed,
// lowercased, with backslash, percent, and underscore escaped so they match
// literally, then wrapped in wildcards. Empty input yields the empty string.
func buildLikeParam(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return ""
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `%`, `\%`)
	v = strings.ReplaceAll(v, `_`, `\_`)
	return "%" + v + "%"
}

// normalizeSort maps the requested sort to a supported one, defaulting to
// latest for anything unrecognized.
func normalizeSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case SortViews:
		return SortViews
	case SortFeedback:
		return SortFeedback
	default:
		return SortLatest
	}
}

// BuildPostFilter turns the raw input into the prepared repository filter:
// clamped pagination, normalized sort, escaped keyword, and anchored tag
// patterns.
func (in DiscoverInput) BuildPostFilter() repository.PostFilter {
	page := in.Page
	if page < 0 {
		page = 0
	}
	// Size clamps to [1, maxPageSize]; a requested size of zero means one
	// result per page, not the default.
	size := in.Size
	if size < 1 {
		size = 1
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	return repository.PostFilter{
		Keyword:      buildLikeParam(in.Keyword),
		LangPattern:  listToPattern(mergeFilterValues(in.Langs, in.LangCSV)),
		StackPattern: listToPattern(mergeFilterValues(in.Stacks, in.StackCSV)),
		ContentsType: in.ContentsType,
		Sort:         normalizeSort(in.Sort),
		Limit:        size,
		Offset:       page * size,
	}
}
