package store

import (
	"errors"
	"testing"
	"time"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

func TestProjectCRUD(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC().Truncate(time.Second)
	p := models.Project{ID: "proj-1", RepoID: "repo-a", Name: "checkout rewrite", CreatedAt: now, UpdatedAt: now}
	if err := db.CreateProject(p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := db.GetProject("proj-1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != p.Name || got.InheritContext {
		t.Errorf("got %+v, want name %q and inherit false", got, p.Name)
	}

	if _, err := db.GetProject("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing project err = %v, want ErrNotFound", err)
	}
}

func TestListProjectsByRepo(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	for _, p := range []models.Project{
		{ID: "proj-1", RepoID: "repo-a", Name: "one", CreatedAt: now, UpdatedAt: now},
		{ID: "proj-2", RepoID: "repo-a", Name: "two", CreatedAt: now.Add(time.Second), UpdatedAt: now},
		{ID: "proj-3", RepoID: "repo-b", Name: "other", CreatedAt: now, UpdatedAt: now},
	} {
		if err := db.CreateProject(p); err != nil {
			t.Fatalf("CreateProject %s: %v", p.ID, err)
		}
	}

	projects, err := db.ListProjects("repo-a")
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("got %d projects, want 2", len(projects))
	}
}

func TestSetProjectInheritance(t *testing.T) {
	db := testDB(t)
	now := time.Now().UTC()
	if err := db.CreateProject(models.Project{ID: "proj-1", RepoID: "repo-a", Name: "one", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	if err := db.SetProjectInheritance("proj-1", true); err != nil {
		t.Fatalf("SetProjectInheritance: %v", err)
	}
	got, err := db.GetProject("proj-1")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if !got.InheritContext {
		t.Error("inherit_context not persisted")
	}

	if err := db.SetProjectInheritance("ghost", true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("ghost err = %v, want ErrNotFound", err)
	}
}
