package azuredevops_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pipescan/pkg/azuredevops"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *azuredevops.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client := azuredevops.NewClient(azuredevops.Config{
		ServerURL:    "https://dev.azure.com",
		Organization: "org",
		Project:      "proj",
		PAT:          "test-pat",
		RepositoryID: "repo-1",
	})
	client.SetBaseURL(ts.URL)
	return client
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("YAMLFilename", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if _, pat, ok := r.BasicAuth(); !ok || pat != "test-pat" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if !strings.Contains(r.URL.Path, "/_apis/build/definitions/10") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte(`{"id": 10, "name": "deploy", "process": {"yamlFilename": "ci/build.yml"}}`))
		})

		name, err := client.YAMLFilename(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "ci/build.yml" {
			t.Errorf("expected ci/build.yml, got %s", name)
		}
	})

	t.Run("YAMLFilenameDefault", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id": 10, "name": "deploy", "process": {}}`))
		})

		name, err := client.YAMLFilename(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if name != "azure-pipelines.yml" {
			t.Errorf("expected default filename, got %s", name)
		}
	})

	t.Run("DefinitionNotFound", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.GetDefinition(ctx, 99)
		if !errors.Is(err, azuredevops.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetFileContent", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.URL.Path, "/_apis/git/repositories/repo-1/items") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write([]byte("steps:\n- script: echo hi\n"))
		})

		content, err := client.GetFileContent(ctx, "azure-pipelines.yml")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(content, "echo hi") {
			t.Errorf("unexpected content: %s", content)
		}
	})

	t.Run("GetLatestBuild", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count": 1, "value": [{"id": 42, "buildNumber": "20240101.1", "result": "succeeded"}]}`))
		})

		build, err := client.GetLatestBuild(ctx, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if build.ID != 42 || build.BuildNumber != "20240101.1" {
			t.Errorf("unexpected build: %+v", build)
		}
	})

	t.Run("GetLatestBuildEmpty", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"count": 0, "value": []}`))
		})

		_, err := client.GetLatestBuild(ctx, 10)
		if !errors.Is(err, azuredevops.ErrNotFound) {
			t.Errorf("expected ErrNotFound for empty build list, got %v", err)
		}
	})

	t.Run("GetBuildTimeline", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"records": [{"name": "Run script", "type": "Task", "result": "succeeded", "log": {"id": 3}}]}`))
		})

		tl, err := client.GetBuildTimeline(ctx, 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(tl.Records) != 1 || tl.Records[0].Log.ID != 3 {
			t.Errorf("unexpected timeline: %+v", tl)
		}
	})
}
