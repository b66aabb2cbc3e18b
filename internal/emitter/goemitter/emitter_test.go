package goemitter

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/swagger2client/internal/codegen"
	"github.com/mark3labs/swagger2client/internal/postprocess"
	"github.com/mark3labs/swagger2client/internal/spec"
)

const petStore = `{"openapi":"3.0.0","info":{"title":"Pet Store","version":"1.0.0"},` +
	`"components":{"schemas":{` +
	`"Pet":{"type":"object","required":["id"],"properties":{"id":{"type":"integer","format":"int64"},"name":{"type":"string"},"status":{"$ref":"#/components/schemas/Status"},"tags":{"type":"array","items":{"type":"string"}}}},` +
	`"Status":{"type":"string","enum":["available","sold"]},` +
	`"Pets":{"type":"array","items":{"$ref":"#/components/schemas/Pet"}}}},` +
	`"paths":{` +
	`"/pets":{"get":{"operationId":"listPets","parameters":[{"name":"limit","in":"query","schema":{"type":"integer"}},{"name":"tags","in":"query","schema":{"type":"array","items":{"type":"string"}}}],` +
	`"responses":{"200":{"description":"ok","content":{"application/json":{"schema":{"$ref":"#/components/schemas/Pets"}}}}}},` +
	`"post":{"operationId":"createPet","requestBody":{"content":{"application/json":{"schema":{"$ref":"#/components/schemas/Pet"}}}},"responses":{"201":{"description":"created"}}}},` +
	`"/pets/{petId}":{"get":{"operationId":"getPet","parameters":[{"name":"petId","in":"path","required":true,"schema":{"type":"integer","format":"int64"}}],` +
	`"responses":{"200":{"description":"ok","content":{"application/json":{"schema":{"$ref":"#/components/schemas/Pet"}}}}}},` +
	`"delete":{"operationId":"deletePet","parameters":[{"name":"petId","in":"path","required":true,"schema":{"type":"string"}}],"responses":{"204":{"description":"gone"}}}}}}`

func petTree(t *testing.T) *codegen.Tree {
	t.Helper()
	ctx := context.Background()
	src, err := spec.LoadData(ctx, []byte(petStore))
	require.NoError(t, err)
	doc, err := spec.BuildDocument(ctx, src)
	require.NoError(t, err)
	tree, err := codegen.Generate(ctx, doc, codegen.WithModulePath("example.com/petstore"))
	require.NoError(t, err)
	return tree
}

func plannedPaths(res *Result) []string {
	out := make([]string, 0, len(res.Planned))
	for _, pf := range res.Planned {
		out = append(out, pf.RelPath)
	}
	return out
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "client")

	res, err := Emit(context.Background(), petTree(t), Options{OutDir: dir, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "example.com/petstore", res.ModulePath)
	assert.Equal(t, "petstore", res.PackageName)
	assert.Equal(t, []string{
		".golangci.yml",
		"client.go",
		"doc.go",
		"errors.go",
		"go.mod",
		"methods/create_pet.go",
		"methods/delete_pet.go",
		"methods/get_pet.go",
		"methods/list_pets.go",
		"methods/methods.go",
		"request.go",
		"route.go",
		"types.go",
	}, plannedPaths(res))
	for _, pf := range res.Planned {
		assert.Positive(t, pf.Size, pf.RelPath)
	}

	_, err = os.Stat(dir)
	assert.True(t, errors.Is(err, os.ErrNotExist), "dry-run must not create the output")
}

func TestEmit_WriteAndContents(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "client")

	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir})
	require.NoError(t, err)

	read := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		return string(data)
	}
	assert.Contains(t, read("go.mod"), "module example.com/petstore")
	assert.Contains(t, read("go.mod"), "go "+GoVersion)
	assert.Contains(t, read("doc.go"), "package petstore")
	assert.Contains(t, read("doc.go"), "Pet Store 1.0.0")
	assert.Contains(t, read("route.go"), "func Do[Resp any](")
	assert.Contains(t, read("types.go"), "type Pet struct")
	assert.Contains(t, read("methods/get_pet.go"), `api "example.com/petstore"`)
	assert.Contains(t, read("methods/methods.go"), "_ api.Request = (*GetPet)(nil)")
	assert.Contains(t, read(".golangci.yml"), "goimports")

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "staging", "staging dir left behind")
	}
}

func TestEmit_NoForce_NonEmptyDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o600))

	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir})
	require.ErrorIs(t, err, ErrOutputNotEmpty)
	_, err = os.Stat(filepath.Join(dir, "existing.txt"))
	assert.NoError(t, err)
}

func TestEmit_EmptyDirIsReplaced(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "types.go"))
	assert.NoError(t, err)
}

func TestEmit_ForceReplacesOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.go"), []byte("package stale\n"), 0o600))

	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir, Force: true})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "stale.go"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "stale file should be gone")
	_, err = os.Stat(filepath.Join(dir, "go.mod"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(dir))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".old-"), "backup left behind: %s", e.Name())
	}
}

func TestEmit_PostProcessorFailureLeavesNoOutput(t *testing.T) {
	t.Parallel()
	parent := t.TempDir()
	dir := filepath.Join(parent, "client")

	var seen string
	fail := postprocess.Func(func(_ context.Context, staged string) error {
		seen = staged
		_, err := os.Stat(filepath.Join(staged, "methods", "methods.go"))
		require.NoError(t, err)
		return postprocess.ErrFixer
	})
	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir, PostProcessor: fail})
	require.ErrorIs(t, err, postprocess.ErrFixer)
	assert.NotEmpty(t, seen)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries, "no output or staging dir may survive a failed run")
}

func TestEmit_PostProcessorFailureKeepsPreviousOutput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o600))

	fail := postprocess.Func(func(context.Context, string) error { return postprocess.ErrFixer })
	_, err := Emit(context.Background(), petTree(t), Options{OutDir: dir, Force: true, PostProcessor: fail})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestEmit_Canceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := filepath.Join(t.TempDir(), "client")

	_, err := Emit(ctx, petTree(t), Options{OutDir: dir})
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmit_RequiresOutDir(t *testing.T) {
	t.Parallel()
	_, err := Emit(context.Background(), petTree(t), Options{})
	require.Error(t, err)
	_, err = Emit(context.Background(), nil, Options{OutDir: t.TempDir()})
	require.Error(t, err)
}

// The generated module only uses the standard library, so it builds offline.
func TestEmit_GeneratedClientBuilds(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a module")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}
	dir := filepath.Join(t.TempDir(), "client")
	_, err = Emit(context.Background(), petTree(t), Options{OutDir: dir, PostProcessor: postprocess.Imports{}})
	require.NoError(t, err)

	cmd := exec.Command(goBin, "vet", "./...")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod", "GOWORK=off")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

const wireStore = `{"openapi":"3.0.0","info":{"title":"Wire","version":"1.0.0"},` +
	`"components":{"schemas":{` +
	`"User":{"type":"object","required":["名前"],"properties":{"名前":{"type":"string"},"a,b":{"type":"string"},"say\"hi":{"type":"integer"}}},` +
	`"No":{"type":"string","enum":["content","body","content"]}}},` +
	`"paths":{"/users":{"get":{"operationId":"getUser","responses":{"200":{"description":"ok","content":{"application/json":{"schema":{"$ref":"#/components/schemas/User"}}}}}}}}}`

const wireRoundTrip = `package wire

import (
	"encoding/json"
	"testing"
)

func TestWireNames(t *testing.T) {
	in := ` + "`" + `{"名前":"taro","a,b":"x","say\"hi":3}` + "`" + `
	var u User
	if err := json.Unmarshal([]byte(in), &u); err != nil {
		t.Fatal(err)
	}
	if u.X名前 != "taro" || u.AB == nil || *u.AB != "x" || u.SayHi == nil || *u.SayHi != 3 {
		t.Fatalf("decoded %+v", u)
	}
	out, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	if want := ` + "`" + `{"a,b":"x","say\"hi":3,"名前":"taro"}` + "`" + `; string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
	out, err = json.Marshal(User{X名前: "hanako"})
	if err != nil {
		t.Fatal(err)
	}
	if want := ` + "`" + `{"名前":"hanako"}` + "`" + `; string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
	if !NoContent_.Valid() || !No("body").Valid() || No("x").Valid() {
		t.Fatal("enum values")
	}
}
`

// Wire names that no struct tag can carry still round-trip in a compiled client.
func TestEmit_WireNamesRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a module")
	}
	goBin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go toolchain not on PATH")
	}
	ctx := context.Background()
	src, err := spec.LoadData(ctx, []byte(wireStore))
	require.NoError(t, err)
	doc, err := spec.BuildDocument(ctx, src)
	require.NoError(t, err)
	tree, err := codegen.Generate(ctx, doc, codegen.WithModulePath("example.com/wire"))
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "client")
	_, err = Emit(ctx, tree, Options{OutDir: dir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wire_test.go"), []byte(wireRoundTrip), 0o600))

	cmd := exec.Command(goBin, "test", "./...")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOFLAGS=-mod=mod", "GOWORK=off")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}
