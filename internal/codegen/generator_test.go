package codegen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swagger2client/internal/spec"
)

const petScenario = `{"components":{"schemas":{"Pet":{"type":"object","required":["id"],"properties":{"id":{"type":"integer","format":"int64"},"name":{"type":"string"}}}}},"paths":{"/pets/{id}":{"get":{"operationId":"getPet","parameters":[{"name":"id","in":"path","required":true,"schema":{"type":"integer"}}],"responses":{"200":{"content":{"application/json":{"schema":{"$ref":"#/components/schemas/Pet"}}}}}}}}}`

func buildDoc(t *testing.T, raw string) *spec.Document {
	t.Helper()
	src, err := spec.LoadData(context.Background(), []byte(raw))
	require.NoError(t, err)
	doc, err := spec.BuildDocument(context.Background(), src)
	require.NoError(t, err)
	return doc
}

func generate(t *testing.T, raw string, opts ...Option) *Tree {
	t.Helper()
	tree, err := Generate(context.Background(), buildDoc(t, raw), opts...)
	require.NoError(t, err)
	return tree
}

func TestGenerate_PetScenario(t *testing.T) {
	t.Parallel()
	tree := generate(t, petScenario)

	require.Len(t, tree.Types, 1)
	pet := tree.Types[0]
	assert.Equal(t, "Pet", pet.Name)
	assert.Equal(t, Record, pet.Kind)
	require.Len(t, pet.Fields, 2)
	assert.Equal(t, Field{WireName: "id", LocalName: "Id", Type: TypeExpr{Kind: ExprInt64}, Required: true}, pet.Fields[0])
	assert.Equal(t, "Name", pet.Fields[1].LocalName)
	assert.Equal(t, "*string", pet.Fields[1].Type.Render(""))
	assert.Equal(t, `json:"name,omitempty"`, pet.Fields[1].Tag())

	types := string(tree.TypesSource)
	assert.Contains(t, types, "package client")
	assert.Regexp(t, "Id\\s+int64\\s+`json:\"id\"`", types)
	assert.Regexp(t, "Name\\s+\\*string\\s+`json:\"name,omitempty\"`", types)
	assert.NotContains(t, types, "import")

	require.Len(t, tree.Operations, 1)
	op := tree.Operations[0]
	assert.Equal(t, "get_pet.go", op.FileName)
	assert.Equal(t, "GetPet", op.TypeName)
	assert.Empty(t, op.ParamsTypeName)
	assert.Nil(t, op.Body)
	require.NotNil(t, op.Response)
	assert.Equal(t, "api.Pet", op.Response.Render(apiQualifier))
	require.Len(t, op.PathParams, 1)
	assert.Equal(t, "int32", op.PathParams[0].Type.Render(""))

	src := string(op.Source)
	assert.Contains(t, src, `api "client"`)
	assert.Contains(t, src, "api.NoBody")
	assert.Contains(t, src, "api.NoQuery")
	assert.Regexp(t, `GetPetMethod\s+= http.MethodGet`, src)
	assert.Regexp(t, `GetPetPath\s+= "/pets/\{id\}"`, src)
	assert.Contains(t, src, `path = strings.ReplaceAll(path, "{id}", url.PathEscape(fmt.Sprint(r.Id)))`)
	assert.Contains(t, src, "func (r *GetPet) Do(ctx context.Context, c api.Client) (api.Pet, error) {")
	assert.Contains(t, src, "return api.Do[api.Pet](ctx, c, r)")
	assert.NotContains(t, src, "RequestBody()")

	agg := string(tree.AggregatorSource)
	assert.Contains(t, agg, "_ api.Request = (*GetPet)(nil)")
	assert.Contains(t, agg, `{Name: "GetPet", OperationID: "getPet", Method: GetPetMethod, Path: GetPetPath}`)
	assert.Empty(t, tree.Report.Skipped)
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()
	a := generate(t, mixedSpec)
	b := generate(t, mixedSpec)

	assert.Equal(t, string(a.TypesSource), string(b.TypesSource))
	assert.Equal(t, string(a.AggregatorSource), string(b.AggregatorSource))
	require.Equal(t, len(a.Operations), len(b.Operations))
	for i := range a.Operations {
		assert.Equal(t, a.Operations[i].FileName, b.Operations[i].FileName)
		assert.Equal(t, string(a.Operations[i].Source), string(b.Operations[i].Source))
	}
	assert.Equal(t, a.Report, b.Report)
}

const mixedSpec = `openapi: 3.0.3
info: { title: Mixed, version: "1" }
paths:
  /zoo:
    get:
      operationId: listZoo
      parameters:
        - name: limit
          in: query
          schema: { type: integer, format: int64 }
        - name: tags
          in: query
          required: true
          schema: { type: array, items: { type: string } }
        - name: q
          in: query
          required: true
          schema: { type: string }
        - name: X-Request-ID
          in: header
          schema: { type: string }
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: { $ref: '#/components/schemas/Node' }
    post:
      operationId: createZoo
      requestBody:
        content:
          application/xml:
            schema: { type: array, items: { $ref: '#/components/schemas/Node' } }
      responses:
        default:
          description: ok
          content:
            application/json:
              schema: { $ref: '#/components/schemas/Node' }
    put:
      operationId: replaceZoo
      deprecated: true
      responses:
        "200": { description: ok }
    delete:
      operationId: deleteZoo
      responses:
        "204": { description: gone }
  /search:
    get:
      operationId: search
      parameters:
        - name: filter
          in: query
          content:
            application/json:
              schema: { type: object }
      responses:
        "200": { description: ok }
  /upload:
    post:
      operationId: upload
      requestBody:
        content:
          text/plain:
            schema: { type: string }
      responses:
        "200": { description: ok }
  /inline:
    post:
      operationId: inlineBody
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                a: { type: string }
      responses:
        "200": { description: ok }
components:
  schemas:
    Node:
      type: object
      required: [type]
      properties:
        type: { type: string, description: "Kind of\n\n  node." }
        parent: { $ref: '#/components/schemas/Node' }
        children:
          type: array
          items: { $ref: '#/components/schemas/Node' }
        status: { $ref: '#/components/schemas/Status' }
        meta: { type: object }
        Type: { type: boolean }
    Status:
      type: string
      description: Node status.
      enum: [active, in-active, ACTIVE, ""]
    Empty:
      type: object
    Nodes:
      type: array
      items: { $ref: '#/components/schemas/Node' }
    Alias:
      $ref: '#/components/schemas/Node'
`

func findType(t *testing.T, tree *Tree, name string) NamedType {
	t.Helper()
	for _, nt := range tree.Types {
		if nt.Name == name {
			return nt
		}
	}
	t.Fatalf("type %s not generated", name)
	return NamedType{}
}

func findOperation(t *testing.T, tree *Tree, id string) OperationFile {
	t.Helper()
	for _, op := range tree.Operations {
		if op.OperationID == id {
			return op
		}
	}
	t.Fatalf("operation %s not generated", id)
	return OperationFile{}
}

func TestGenerate_Types(t *testing.T) {
	t.Parallel()
	tree := generate(t, mixedSpec, WithModulePath("example.com/zoo"))
	assert.Equal(t, "zoo", tree.PackageName)

	var names []string
	for _, nt := range tree.Types {
		names = append(names, nt.Name)
	}
	assert.Equal(t, []string{"Alias", "Empty", "Node", "Nodes", "Status"}, names)

	node := findType(t, tree, "Node")
	require.Len(t, node.Fields, 6)
	byWire := map[string]Field{}
	for _, f := range node.Fields {
		byWire[f.WireName] = f
	}

	// Keyword-derived names are escaped, never dropped, and keep the wire name.
	assert.Equal(t, "Type_", byWire["type"].LocalName)
	assert.True(t, byWire["type"].Required)
	assert.Equal(t, `json:"type"`, byWire["type"].Tag())
	assert.Equal(t, "Kind of node.", byWire["type"].Doc)
	assert.Equal(t, "Type_2", byWire["Type"].LocalName)
	assert.Equal(t, `json:"Type,omitempty"`, byWire["Type"].Tag())

	assert.True(t, byWire["parent"].Type.Boxed)
	assert.Equal(t, "*Node", byWire["parent"].Type.Render(""))
	assert.Equal(t, "[]Node", byWire["children"].Type.Render(""))
	assert.Equal(t, "*Status", byWire["status"].Type.Render(""))
	assert.Equal(t, "map[string]any", byWire["meta"].Type.Render(""))

	for _, f := range node.Fields {
		assert.Equal(t, f.WireName == "type", f.Required, f.WireName)
	}

	status := findType(t, tree, "Status")
	assert.Equal(t, ClosedEnum, status.Kind)
	assert.Equal(t, []Variant{
		{Name: "StatusActive", Value: "active"},
		{Name: "StatusInActive", Value: "in-active"},
		{Name: "StatusActive2", Value: "ACTIVE"},
		{Name: "StatusEmpty", Value: ""},
	}, status.Variants)

	assert.Equal(t, Alias, findType(t, tree, "Empty").Kind)
	assert.Equal(t, "map[string]any", findType(t, tree, "Empty").Underlying.Render(""))
	assert.Equal(t, "[]Node", findType(t, tree, "Nodes").Underlying.Render(""))
	assert.Equal(t, "Node", findType(t, tree, "Alias").Underlying.Render(""))

	src := string(tree.TypesSource)
	assert.Contains(t, src, "package zoo")
	assert.Contains(t, src, `"encoding/json"`)
	assert.Contains(t, src, "type Alias = Node")
	assert.Contains(t, src, "type Nodes = []Node")
	assert.Contains(t, src, "type Empty = map[string]any")
	assert.Contains(t, src, "// Node status.\ntype Status string")
	assert.Regexp(t, `StatusInActive\s+Status = "in-active"`, src)
	assert.Contains(t, src, "case StatusActive, StatusInActive, StatusActive2, StatusEmpty:")
	assert.Contains(t, src, "func (e *Status) UnmarshalJSON(data []byte) error {")
	assert.Regexp(t, "Parent\\s+\\*Node\\s+`json:\"parent,omitempty\"`", src)
	assert.Contains(t, src, "// Kind of node.")
}

func TestGenerate_OperationsAndReport(t *testing.T) {
	t.Parallel()
	tree := generate(t, mixedSpec)

	var files []string
	for _, op := range tree.Operations {
		files = append(files, op.FileName)
	}
	assert.Equal(t, []string{"create_zoo.go", "delete_zoo.go", "inline_body.go", "list_zoo.go"}, files)

	list := findOperation(t, tree, "listZoo")
	assert.Equal(t, "ListZooParams", list.ParamsTypeName)
	require.Len(t, list.QueryParams, 3)
	assert.Equal(t, "*int64", list.QueryParams[0].Type.Render(""))
	assert.Equal(t, "[]string", list.QueryParams[1].Type.Render(""))
	assert.Equal(t, "string", list.QueryParams[2].Type.Render(""))
	assert.Equal(t, "[]api.Node", list.Response.Render(apiQualifier))
	src := string(list.Source)
	assert.Contains(t, src, "func (p ListZooParams) Values() url.Values {")
	assert.Contains(t, src, `q.Set("limit", fmt.Sprint(*p.Limit))`)
	assert.Contains(t, src, `q.Add("tags", fmt.Sprint(v))`)
	assert.Contains(t, src, `q.Set("q", fmt.Sprint(p.Q))`)
	assert.Contains(t, src, "func (r *ListZoo) RequestQuery() url.Values { return r.Params.Values() }")
	assert.Contains(t, src, "func (r *ListZoo) RequestPath() string { return ListZooPath }")
	assert.NotContains(t, src, `"strings"`)
	assert.NotContains(t, src, "api.NoQuery")

	create := findOperation(t, tree, "createZoo")
	require.NotNil(t, create.Body)
	assert.Equal(t, "[]api.Node", create.Body.Render(apiQualifier))
	assert.Equal(t, "api.Node", create.Response.Render(apiQualifier))
	assert.Contains(t, string(create.Source), "if r.Body == nil {")

	del := findOperation(t, tree, "deleteZoo")
	assert.Nil(t, del.Response)
	assert.Contains(t, string(del.Source), "return api.Do[api.NoContent](ctx, c, r)")

	inline := findOperation(t, tree, "inlineBody")
	assert.Nil(t, inline.Body)
	assert.Contains(t, string(inline.Source), "api.NoBody")

	reasons := map[string]error{}
	for _, s := range tree.Report.Skipped {
		reasons[s.OperationID] = s.Err
	}
	require.Len(t, reasons, 3)
	assert.ErrorIs(t, reasons["replaceZoo"], ErrDeprecated)
	assert.ErrorIs(t, reasons["search"], ErrContentParameter)
	assert.ErrorIs(t, reasons["upload"], ErrUnsupportedMediaType)

	require.Len(t, tree.Report.Warnings, 2)
	assert.Contains(t, tree.Report.Warnings[0], "header parameter \"X-Request-ID\" ignored")
	assert.Contains(t, tree.Report.Warnings[1], "POST /inline (inlineBody): request body")

	agg := string(tree.AggregatorSource)
	assert.Contains(t, agg, "_ api.Request = (*ListZoo)(nil)")
	assert.NotContains(t, agg, "ReplaceZoo")
}

func TestGenerate_MissingOperationIDIsFatal(t *testing.T) {
	t.Parallel()
	doc := buildDoc(t, `{"paths":{"/a":{"get":{"responses":{"200":{"description":"ok"}}}}}}`)
	_, err := Generate(context.Background(), doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingOperationID)

	var opErr *OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "/a", opErr.Path)
}

func TestGenerate_Collisions(t *testing.T) {
	t.Parallel()

	doc := buildDoc(t, `{"paths":{},"components":{"schemas":{"pet":{"type":"string"},"Pet":{"type":"integer"}}}}`)
	_, err := Generate(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNameCollision)

	doc = buildDoc(t, `{"paths":{`+
		`"/a":{"get":{"operationId":"getPet","responses":{"200":{"description":"ok"}}}},`+
		`"/b":{"get":{"operationId":"get_pet","responses":{"200":{"description":"ok"}}}}}}`)
	_, err = Generate(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNameCollision)

	doc = buildDoc(t, `{"paths":{"/a":{"get":{"operationId":"operations","responses":{"200":{"description":"ok"}}}}}}`)
	_, err = Generate(context.Background(), doc)
	assert.ErrorIs(t, err, ErrNameCollision)
}

func TestGenerate_PathParamNamesAvoidMembers(t *testing.T) {
	t.Parallel()
	tree := generate(t, `{"paths":{"/x/{body}/{do}":{"post":{"operationId":"poke","parameters":[`+
		`{"name":"body","in":"path","required":true,"schema":{"type":"string"}},`+
		`{"name":"do","in":"path","required":true,"schema":{"type":"string"}}],`+
		`"responses":{"200":{"description":"ok"}}}}}}`)
	op := findOperation(t, tree, "poke")
	require.Len(t, op.PathParams, 2)
	assert.Equal(t, "Body2", op.PathParams[0].LocalName)
	assert.Equal(t, "Do2", op.PathParams[1].LocalName)
	assert.Contains(t, string(op.Source), `strings.ReplaceAll(path, "{body}", url.PathEscape(fmt.Sprint(r.Body2)))`)
}

func TestGenerate_Canceled(t *testing.T) {
	t.Parallel()
	doc := buildDoc(t, petScenario)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Generate(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

const wireNamesSpec = `{"paths":{},"components":{"schemas":{` +
	`"User":{"type":"object","required":["名前"],"properties":{"名前":{"type":"string"},"a,b":{"type":"string"}}},` +
	`"ユーザー":{"type":"object","properties":{"id":{"type":"string"}}}}}}`

func TestGenerate_UntaggableWireNames(t *testing.T) {
	t.Parallel()
	tree := generate(t, wireNamesSpec)

	user := findType(t, tree, "User")
	assert.True(t, user.CustomJSON)
	require.Len(t, user.Fields, 2)
	assert.Equal(t, "X名前", user.Fields[0].LocalName)
	assert.Equal(t, "AB", user.Fields[1].LocalName)
	assert.False(t, findType(t, tree, "Xユーザー").CustomJSON)

	src := string(tree.TypesSource)
	assert.Contains(t, src, `"encoding/json"`)
	assert.Contains(t, src, `"fmt"`)
	assert.Regexp(t, `X名前\s+string\n`, src)
	assert.NotContains(t, src, `json:"a,b`)
	assert.Contains(t, src, "func (v User) MarshalJSON() ([]byte, error) {")
	assert.Contains(t, src, `m["名前"] = v.X名前`)
	assert.Contains(t, src, "if v.AB != nil {\n\t\tm[\"a,b\"] = v.AB\n\t}")
	assert.Contains(t, src, "func (v *User) UnmarshalJSON(data []byte) error {")
	assert.Contains(t, src, `if m, ok := raw["a,b"]; ok {`)
	assert.Contains(t, src, "type Xユーザー struct {")
	assert.NotContains(t, src, "func (v Xユーザー) MarshalJSON")
}

func TestGenerate_EnumVariantNames(t *testing.T) {
	t.Parallel()
	tree := generate(t, `{"paths":{},"components":{"schemas":{"No":{"type":"string","enum":["content","body","content","query"]}}}}`)

	no := findType(t, tree, "No")
	assert.Equal(t, []Variant{
		{Name: "NoContent_", Value: "content"},
		{Name: "NoBody_", Value: "body"},
		{Name: "NoQuery_", Value: "query"},
	}, no.Variants)

	src := string(tree.TypesSource)
	assert.Contains(t, src, "case NoContent_, NoBody_, NoQuery_:")
	assert.Equal(t, 1, strings.Count(src, `= "content"`))
}
