package postgres

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapquery/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// Postgres is the PostgreSQL dialect.
var Postgres = dialect.New(Config).
	Functions(map[string]dialect.FunctionRenderer{
		"JSON_EXTRACT": renderJSONExtract,
	}).
	Aliases(map[string]string{
		"IFNULL": "COALESCE",
		"NVL":    "COALESCE",
		"LEN":    "LENGTH",
	}).
	Build()

// renderJSONExtract renders jsonb_extract_path_text(CAST(doc AS jsonb), k1, k2, ...).
// The cast accepts json, jsonb and text columns alike.
func renderJSONExtract(fc dialect.FuncContext) (string, error) {
	segments, err := dialect.JSONPath(fc)
	if err != nil {
		return "", err
	}
	doc, err := fc.Render(0)
	if err != nil {
		return "", err
	}
	keys := make([]string, len(segments))
	for i, seg := range segments {
		keys[i] = fc.Bind(seg)
	}
	return fmt.Sprintf("jsonb_extract_path_text(CAST(%s AS jsonb), %s)", doc, strings.Join(keys, ", ")), nil
}
