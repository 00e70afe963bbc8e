package aptos

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// EntryFunction is a Move entry-function call.
type EntryFunction struct {
	Function      string
	TypeArguments []string
	Arguments     []json.RawMessage
}

// ParseEntryFunction decodes an entry-function payload written either in
// the SDK's camelCase form or the REST API's snake_case form.
func ParseEntryFunction(raw []byte) (EntryFunction, error) {
	var in struct {
		Function          string            `json:"function"`
		TypeArguments     []string          `json:"typeArguments"`
		TypeArgumentsRest []string          `json:"type_arguments"`
		FunctionArguments []json.RawMessage `json:"functionArguments"`
		Arguments         []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return EntryFunction{}, fmt.Errorf("aptos: decode entry function: %w", err)
	}
	fn := strings.TrimSpace(in.Function)
	if strings.Count(fn, "::") != 2 {
		return EntryFunction{}, errors.New("aptos: entry function must be address::module::name")
	}
	out := EntryFunction{Function: fn, TypeArguments: in.TypeArguments, Arguments: in.FunctionArguments}
	if out.TypeArguments == nil {
		out.TypeArguments = in.TypeArgumentsRest
	}
	if out.Arguments == nil {
		out.Arguments = in.Arguments
	}
	if out.TypeArguments == nil {
		out.TypeArguments = []string{}
	}
	if out.Arguments == nil {
		out.Arguments = []json.RawMessage{}
	}
	return out, nil
}

type entryFunctionPayload struct {
	Type          string            `json:"type"`
	Function      string            `json:"function"`
	TypeArguments []string          `json:"type_arguments"`
	Arguments     []json.RawMessage `json:"arguments"`
}

func (f EntryFunction) restPayload() entryFunctionPayload {
	return entryFunctionPayload{
		Type:          "entry_function_payload",
		Function:      f.Function,
		TypeArguments: f.TypeArguments,
		Arguments:     f.Arguments,
	}
}
