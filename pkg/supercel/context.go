package supercel

import (
	"encoding/json"
	"fmt"

	"github.com/nullsafe/supercel/internal/catalog"
	"github.com/nullsafe/supercel/internal/value"
)

// wireContext mirrors the ctx_json shape of spec §6's first two entry
// points: { expression, variables: { map: <vars> }, computed?, device? }.
// expression is left as raw JSON since evaluate_with_context expects a
// source-text string while evaluate_ast_with_context expects an AST object.
type wireContext struct {
	Expression json.RawMessage          `json:"expression"`
	Variables  wireVariables            `json:"variables"`
	Computed   map[string][]value.Value `json:"computed"`
	Device     map[string][]value.Value `json:"device"`
}

type wireVariables struct {
	Map map[string]value.Value `json:"map"`
}

// decodeContext parses ctxJSON into its pieces: the raw expression payload,
// the user variables as a MapValue, and the declared device/computed
// catalogues.
func decodeContext(ctxJSON string) (expr json.RawMessage, vars *value.MapValue, decl catalog.Declaration, err error) {
	var wc wireContext
	if err := json.Unmarshal([]byte(ctxJSON), &wc); err != nil {
		return nil, nil, catalog.Declaration{}, fmt.Errorf("supercel: invalid context JSON: %w", err)
	}
	m := value.NewMap()
	for k, v := range wc.Variables.Map {
		m.Set(value.StringKey(k), v)
	}
	decl = catalog.Declaration{}
	if wc.Device != nil {
		decl.Device = catalog.Catalogue(wc.Device)
	}
	if wc.Computed != nil {
		decl.Computed = catalog.Catalogue(wc.Computed)
	}
	return wc.Expression, m, decl, nil
}
