package runconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nlpforge/bertrun/internal/dag"
)

// refRe matches ${dotted.key} interpolation references.
var refRe = regexp.MustCompile(`\$\{([A-Za-z0-9_][A-Za-z0-9_.\-]*)\}`)

// CycleError is returned when interpolation references form a cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("interpolation cycle: %s", strings.Join(e.Path, " -> "))
}

// Interpolate resolves ${key} references in a parsed document. References use
// dotted absolute paths ("${max_seq_len}", "${model.tokenizer_name}"). A value
// that is exactly one reference takes the referent's type; references embedded
// in a longer string are substituted as text. Resolution happens once; the
// input map is not modified.
func Interpolate(doc map[string]any) (map[string]any, error) {
	resolved := copyTree(doc).(map[string]any)

	// Collect leaves that contain references and the targets they name.
	refs := make(map[string][]string)
	walkLeaves("", resolved, func(path string, val any) {
		s, ok := val.(string)
		if !ok {
			return
		}
		for _, m := range refRe.FindAllStringSubmatch(s, -1) {
			refs[path] = append(refs[path], m[1])
		}
	})
	if len(refs) == 0 {
		return resolved, nil
	}

	graph := dag.New()
	for path, targets := range refs {
		graph.AddNode(path)
		for _, target := range targets {
			if _, ok := getPath(resolved, target); !ok {
				return nil, fmt.Errorf("interpolation reference ${%s} in %s: key not defined", target, path)
			}
			graph.AddNode(target)
			if err := graph.AddEdge(target, path); err != nil {
				return nil, fmt.Errorf("interpolation reference ${%s} in %s: %w", target, path, err)
			}
		}
	}

	if hasCycle, cyclePath := graph.HasCycle(); hasCycle {
		return nil, &CycleError{Path: cyclePath}
	}

	order, err := graph.TopologicalSort()
	if err != nil {
		return nil, err
	}

	for _, path := range order {
		if _, ok := refs[path]; !ok {
			continue
		}
		val, _ := getPath(resolved, path)
		s := val.(string)

		out, err := substitute(resolved, path, s)
		if err != nil {
			return nil, err
		}
		setPath(resolved, path, out)
	}

	return resolved, nil
}

// substitute resolves all references in one string value.
func substitute(doc map[string]any, path, s string) (any, error) {
	// A whole-string reference preserves the referent's type.
	if m := refRe.FindStringSubmatch(s); m != nil && m[0] == s {
		target, _ := getPath(doc, m[1])
		switch target.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("interpolation reference ${%s} in %s: referent is not a scalar", m[1], path)
		}
		return target, nil
	}

	var substErr error
	out := refRe.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		target, _ := getPath(doc, key)
		switch target.(type) {
		case map[string]any, []any:
			substErr = fmt.Errorf("interpolation reference ${%s} in %s: referent is not a scalar", key, path)
			return match
		}
		return fmt.Sprint(target)
	})
	if substErr != nil {
		return nil, substErr
	}
	return out, nil
}

// walkLeaves visits every scalar leaf of a nested document, including list
// elements (addressed by numeric path segments).
func walkLeaves(prefix string, v any, fn func(path string, val any)) {
	switch node := v.(type) {
	case map[string]any:
		for key, child := range node {
			walkLeaves(joinPath(prefix, key), child, fn)
		}
	case []any:
		for i, child := range node {
			walkLeaves(joinPath(prefix, strconv.Itoa(i)), child, fn)
		}
	default:
		fn(prefix, v)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// getPath traverses a dotted path through nested maps and lists.
func getPath(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// setPath writes a value at a dotted path. The path must already exist; it was
// produced by walking the same document.
func setPath(doc map[string]any, path string, val any) {
	segs := strings.Split(path, ".")
	var cur any = doc
	for _, seg := range segs[:len(segs)-1] {
		switch node := cur.(type) {
		case map[string]any:
			cur = node[seg]
		case []any:
			idx, _ := strconv.Atoi(seg)
			cur = node[idx]
		}
	}
	last := segs[len(segs)-1]
	switch node := cur.(type) {
	case map[string]any:
		node[last] = val
	case []any:
		idx, _ := strconv.Atoi(last)
		node[idx] = val
	}
}

// copyTree deep-copies the map/slice spine of a document. Scalars are shared.
func copyTree(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for key, child := range node {
			out[key] = copyTree(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = copyTree(child)
		}
		return out
	default:
		return v
	}
}
