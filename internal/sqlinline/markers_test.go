package sqlinline

import (
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// Every inline statement must open with a unique "--sql <uuid>" marker so log
// lines from infra.SQLRunner point back at exactly one query.
func TestQueriesCarryUniqueMarkers(t *testing.T) {
	files, err := filepath.Glob("*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	seen := map[string]string{}
	checked := 0
	for _, path := range files {
		if strings.HasSuffix(path, "_test.go") {
			continue
		}
		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", path, err)
		}
		ast.Inspect(file, func(n ast.Node) bool {
			spec, ok := n.(*ast.ValueSpec)
			if !ok {
				return true
			}
			for i, value := range spec.Values {
				lit, ok := value.(*ast.BasicLit)
				if !ok || lit.Kind != token.STRING {
					continue
				}
				raw := unquote(lit.Value)
				if !sqlKeywordPattern.MatchString(raw) {
					continue
				}
				checked++
				name := spec.Names[i].Name
				marker := firstLine(raw)
				if !uuidMarkerPattern.MatchString(marker) {
					t.Errorf("%s:%d %s: missing or invalid --sql <uuid> marker", path, fset.Position(lit.Pos()).Line, name)
					continue
				}
				if other, dup := seen[marker]; dup {
					t.Errorf("%s: marker already used by %s", name, other)
				}
				seen[marker] = name
			}
			return true
		})
	}
	if checked == 0 {
		t.Fatal("no queries found")
	}
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) string {
	if strings.HasPrefix(v, "`") {
		return strings.Trim(v, "`")
	}
	s, err := strconv.Unquote(v)
	if err != nil {
		return ""
	}
	return s
}
