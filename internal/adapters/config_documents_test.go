package adapters

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cascade-builds/internal/shared"
	"cascade-builds/internal/types"
)

var bootstrapMaster = types.ConfigLocation{
	Repo:   types.RepositoryID{Owner: "kiegroup", Name: "droolsjbpm-build-bootstrap"},
	Branch: "master",
}

func TestHTTPConfigDocumentsFetch(t *testing.T) {
	var seenPath, seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		seenAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/kiegroup/droolsjbpm-build-bootstrap/master/script/branch-mapping.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("master: []\n"))
	}))
	defer server.Close()

	documents := HTTPConfigDocuments{BaseURL: server.URL + "/", Token: "secret"}
	content, err := documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultMappingPath)
	require.NoError(t, err)
	assert.Equal(t, "master: []\n", string(content))
	assert.Equal(t, "/kiegroup/droolsjbpm-build-bootstrap/master/script/branch-mapping.yaml", seenPath)
	assert.Equal(t, "token secret", seenAuth)

	_, err = documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultInventoryPath)
	require.Error(t, err)
	assert.Equal(t, shared.KindConfigFetch, shared.KindOf(err))
	assert.Contains(t, err.Error(), "script/repository-list.txt")
}

func TestHTTPConfigDocumentsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := HTTPConfigDocuments{BaseURL: url}.FetchDocument(t.Context(), bootstrapMaster, types.DefaultMappingPath)
	require.Error(t, err)
	assert.Equal(t, shared.KindConfigFetch, shared.KindOf(err))
}

func TestHTTPConfigDocumentsDefaultURL(t *testing.T) {
	url := NewHTTPConfigDocuments(types.Config{}.WithDefaults()).DocumentURL(bootstrapMaster, types.DefaultMappingPath)
	assert.Equal(t, "https://raw.githubusercontent.com/kiegroup/droolsjbpm-build-bootstrap/master/script/branch-mapping.yaml", url)
}

func TestDirConfigDocuments(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "kiegroup", "droolsjbpm-build-bootstrap", "master", "script")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repository-list.txt"), []byte("drools\n"), 0644))

	documents := NewDirConfigDocuments(root)
	content, err := documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultInventoryPath)
	require.NoError(t, err)
	assert.Equal(t, "drools\n", string(content))

	_, err = documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultMappingPath)
	require.Error(t, err)
	assert.Equal(t, shared.KindConfigFetch, shared.KindOf(err))
}

func TestFixtureConfigDocuments(t *testing.T) {
	documents := NewFixtureConfigDocuments().Add(bootstrapMaster, types.DefaultMappingPath, "master: []\n")

	content, err := documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultMappingPath)
	require.NoError(t, err)
	assert.Equal(t, "master: []\n", string(content))

	_, err = documents.FetchDocument(t.Context(), types.ConfigLocation{Repo: bootstrapMaster.Repo, Branch: "7.5.x"}, types.DefaultMappingPath)
	require.Error(t, err)
	assert.Equal(t, shared.KindConfigFetch, shared.KindOf(err))
}

func TestFallbackConfigDocuments(t *testing.T) {
	primary := NewFixtureConfigDocuments().Add(bootstrapMaster, types.DefaultMappingPath, "master: []\n")
	fallback := NewFixtureConfigDocuments().
		Add(bootstrapMaster, types.DefaultMappingPath, "from fallback").
		Add(bootstrapMaster, types.DefaultInventoryPath, "drools\n")
	documents := FallbackConfigDocuments{Primary: primary, Fallback: fallback}

	content, err := documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultMappingPath)
	require.NoError(t, err)
	assert.Equal(t, "master: []\n", string(content), "primary wins when reachable")

	content, err = documents.FetchDocument(t.Context(), bootstrapMaster, types.DefaultInventoryPath)
	require.NoError(t, err)
	assert.Equal(t, "drools\n", string(content))

	_, err = documents.FetchDocument(t.Context(), types.ConfigLocation{Repo: bootstrapMaster.Repo, Branch: "7.5.x"}, types.DefaultInventoryPath)
	require.Error(t, err)
	assert.Equal(t, shared.KindConfigFetch, shared.KindOf(err))
}
