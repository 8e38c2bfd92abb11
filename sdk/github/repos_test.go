package github

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
)

func TestListRepositories_PassesOptionsAndPaginates(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("per_page") != "50" || q.Get("sort") != "pushed" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Link", `<http://`+r.Host+`/user/repos?page=3&per_page=50>; rel="next", <http://`+r.Host+`/user/repos?page=4&per_page=50>; rel="last"`)
		_, _ = w.Write([]byte(`[{"id":1,"name":"site","full_name":"octo/site","private":true,"default_branch":"main","owner":{"login":"octo"}}]`))
	})
	page, err := c.ListRepositories(context.Background(), ListOptions{Page: 2, PerPage: 50, Sort: "pushed"})
	if err != nil {
		t.Fatalf("ListRepositories: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].FullName != "octo/site" || page.Items[0].Owner.Login != "octo" || !page.Items[0].Private {
		t.Fatalf("unexpected repos %+v", page.Items)
	}
	if page.NextPage != 3 || page.LastPage != 4 {
		t.Fatalf("next=%d last=%d", page.NextPage, page.LastPage)
	}
}

func TestCreateRepository(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/repos" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var in CreateRepositoryRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		if in.Name != "notes" || !in.Private || !in.AutoInit {
			t.Errorf("unexpected body %+v", in)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"name":"notes","full_name":"octo/notes","private":true}`))
	})

	repo, err := c.CreateRepository(context.Background(), CreateRepositoryRequest{Name: "notes", Private: true, AutoInit: true})
	if err != nil {
		t.Fatalf("CreateRepository: %v", err)
	}
	if repo.FullName != "octo/notes" {
		t.Fatalf("unexpected repo %+v", repo)
	}
	if _, err = c.CreateRepository(context.Background(), CreateRepositoryRequest{}); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestGetTreeAndListCommits(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/octo/site/git/trees/main":
			if r.URL.Query().Get("recursive") != "1" {
				t.Errorf("recursive flag missing")
			}
			_, _ = w.Write([]byte(`{"sha":"t1","truncated":false,"tree":[{"path":"docs","type":"tree","sha":"d"},{"path":"docs/a.md","type":"blob","sha":"b","size":12}]}`))
		case "/repos/octo/site/commits":
			q := r.URL.Query()
			if q.Get("sha") != "main" || q.Get("path") != "docs/a.md" || q.Get("per_page") != "5" || q.Get("page") != "1" {
				t.Errorf("unexpected commit query %s", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`[{"sha":"c1","commit":{"message":"Publish a\n\nbody","author":{"name":"Octo","email":"o@example.com"}},"author":{"login":"octo"}}]`))
		default:
			http.NotFound(w, r)
		}
	})

	tree, err := c.GetTree(context.Background(), "octo", "site", "main", true)
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	if tree.SHA != "t1" || len(tree.Entries) != 2 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if blobs := tree.Blobs(); len(blobs) != 1 || blobs[0].Path != "docs/a.md" || blobs[0].Size != 12 {
		t.Fatalf("unexpected blobs %+v", blobs)
	}

	page, err := c.ListCommits(context.Background(), "octo", "site", CommitListOptions{SHA: "main", Path: "docs/a.md", Page: 1, PerPage: 5})
	if err != nil {
		t.Fatalf("ListCommits: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Summary() != "Publish a" || page.Items[0].Author.Login != "octo" {
		t.Fatalf("unexpected commits %+v", page.Items)
	}
	if page.NextPage != 0 {
		t.Fatalf("NextPage = %d", page.NextPage)
	}

	if _, err = c.GetTree(context.Background(), "octo", "site", "", false); err == nil {
		t.Fatal("expected error for empty ref")
	}
}
