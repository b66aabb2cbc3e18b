package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// rewriteV2Operations patches Swagger v2 operations that openapi2conv
// rejects:
//   - several body parameters are merged into one body parameter holding an
//     object schema with one property per original parameter;
//   - body parameters mixed with formData parameters become formData, and
//     the operation consumes multipart/form-data.
//
// On error the input is returned unchanged with changed=false.
func rewriteV2Operations(data []byte) (out []byte, changed bool, err error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}

	for _, rawItem := range paths {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		for method, rawOp := range item {
			if !isV2Method(method) {
				continue
			}
			op, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}
			if rewriteV2Operation(op) {
				changed = true
			}
		}
	}

	if !changed {
		return data, false, nil
	}
	out, err = yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func isV2Method(m string) bool {
	switch strings.ToLower(m) {
	case "get", "post", "put", "delete", "patch", "options", "head":
		return true
	}
	return false
}

func rewriteV2Operation(op map[string]any) bool {
	params, ok := op["parameters"].([]any)
	if !ok || len(params) == 0 {
		return false
	}

	bodies := 0
	hasForm := false
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch {
		case pm == nil:
		case paramIn(pm, "body"):
			bodies++
		case paramIn(pm, "formData"):
			hasForm = true
		}
	}

	switch {
	case bodies == 0:
		return false
	case hasForm:
		out := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil {
				continue
			}
			if paramIn(pm, "body") {
				out = append(out, bodyAsFormParam(pm))
				continue
			}
			out = append(out, pm)
		}
		op["parameters"] = out
		consumes, _ := op["consumes"].([]any)
		if !containsString(consumes, "multipart/form-data") {
			op["consumes"] = append(consumes, "multipart/form-data")
		}
		return true
	case bodies > 1:
		props := map[string]any{}
		var required []any
		rest := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(map[string]any)
			if pm == nil || !paramIn(pm, "body") {
				rest = append(rest, p)
				continue
			}
			name := nonEmpty(asString(pm["name"]), "field")
			schema := schemaOfParam(pm)
			if schema == nil {
				schema = map[string]any{"type": "string"}
			}
			props[name] = schema
			if req, _ := pm["required"].(bool); req {
				required = append(required, name)
			}
		}
		schema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		merged := map[string]any{"in": "body", "name": "body", "schema": schema}
		op["parameters"] = append([]any{merged}, rest...)
		return true
	}
	return false
}

func paramIn(pm map[string]any, loc string) bool {
	return strings.EqualFold(asString(pm["in"]), loc)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// schemaOfParam returns the body schema of pm, or one synthesized from its
// type/items/format keys.
func schemaOfParam(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" {
		return nil
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		m["format"] = f
	}
	return m
}

func bodyAsFormParam(pm map[string]any) map[string]any {
	out := map[string]any{
		"in":   "formData",
		"name": nonEmpty(asString(pm["name"]), "field"),
	}
	if d := asString(pm["description"]); d != "" {
		out["description"] = d
	}
	if req, ok := pm["required"].(bool); ok {
		out["required"] = req
	}

	var typ, format string
	var items any
	if sch, ok := pm["schema"].(map[string]any); ok {
		typ = asString(sch["type"])
		format = asString(sch["format"])
		if it, ok := sch["items"].(map[string]any); ok {
			items = it
		}
		// A referenced object has no formData form.
		if typ == "" && sch["$ref"] != nil {
			typ = "string"
		}
	}
	if typ == "" {
		typ = asString(pm["type"])
		format = asString(pm["format"])
		if it, ok := pm["items"].(map[string]any); ok {
			items = it
		}
	}
	out["type"] = nonEmpty(typ, "string")
	if items != nil {
		out["items"] = items
	}
	if format != "" {
		out["format"] = format
	}
	return out
}
