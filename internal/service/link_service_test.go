package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/KartikLabhshetwar/oneurl/internal/apperrors"
	"github.com/KartikLabhshetwar/oneurl/internal/dto"
	"github.com/KartikLabhshetwar/oneurl/internal/model"
	"github.com/KartikLabhshetwar/oneurl/internal/repository"
	"github.com/KartikLabhshetwar/oneurl/internal/storage"
)

func strPtr(s string) *string { return &s }

func TestCreateLinkAppendsToEnd(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	newLink(t, profile.ID, "existing", 0, true)

	link, err := CreateLink(profile.ID, dto.LinkInput{Title: "blog", URL: "https://blog.example.com"})
	if err != nil {
		t.Fatalf("CreateLink failed: %v", err)
	}
	if link.Position != 1 {
		t.Errorf("position = %d, want 1 (appended after existing)", link.Position)
	}
	if !link.IsActive {
		t.Error("new link should be active")
	}
}

func TestCreateLinkRejectsBadURL(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")

	_, err := CreateLink(profile.ID, dto.LinkInput{Title: "bad", URL: "ftp://example.com"})
	if err == nil {
		t.Fatal("expected validation error for non-http URL")
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusBadRequest {
		t.Errorf("error = %v, want 400", err)
	}
}

func TestReplaceLinksRebuildsInOrder(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	newLink(t, profile.ID, "old-a", 0, true)
	newLink(t, profile.ID, "old-b", 1, true)

	created, err := ReplaceLinks(profile.ID, []dto.LinkInput{
		{Title: "new-a", URL: "https://a.example.com"},
		{Title: "new-b", URL: "https://b.example.com"},
		{Title: "new-c", URL: "https://c.example.com"},
	})
	if err != nil {
		t.Fatalf("ReplaceLinks failed: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created = %d, want 3", len(created))
	}
	for i, link := range created {
		if link.Position != i {
			t.Errorf("link %q position = %d, want %d", link.Title, link.Position, i)
		}
	}

	links, err := GetLinksByProfile(profile.ID)
	if err != nil {
		t.Fatalf("GetLinksByProfile failed: %v", err)
	}
	if len(links) != 3 {
		t.Errorf("profile has %d links after replace, want 3", len(links))
	}
	for _, link := range links {
		if link.Title == "old-a" || link.Title == "old-b" {
			t.Errorf("old link %q survived replace", link.Title)
		}
	}
}

func TestReplaceLinksValidatesBeforeDeleting(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	newLink(t, profile.ID, "keep-me", 0, true)

	_, err := ReplaceLinks(profile.ID, []dto.LinkInput{
		{Title: "ok", URL: "https://a.example.com"},
		{Title: "", URL: "https://b.example.com"},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	// 校验失败时旧链接不能被删
	links, _ := GetLinksByProfile(profile.ID)
	if len(links) != 1 || links[0].Title != "keep-me" {
		t.Errorf("existing links mutated on failed replace: %+v", links)
	}
}

func TestUpdateLinkOwnershipAndPartialUpdate(t *testing.T) {
	initTestEnv(t)
	owner := newProfile(t, "user-1", "alice")
	other := newProfile(t, "user-2", "bob")
	link := newLink(t, owner.ID, "blog", 0, true)

	assertNotFound(t, UpdateLink(other.ID, link.ID, dto.UpdateLinkRequest{Title: strPtr("hijacked")}))

	if err := UpdateLink(owner.ID, link.ID, dto.UpdateLinkRequest{Title: strPtr("renamed")}); err != nil {
		t.Fatalf("UpdateLink failed: %v", err)
	}

	var got model.Link
	repository.DB.First(&got, "id = ?", link.ID)
	if got.Title != "renamed" {
		t.Errorf("title = %q, want renamed", got.Title)
	}
	if got.URL != link.URL {
		t.Errorf("url changed unexpectedly: %q", got.URL)
	}
}

func TestDeleteLinkCleansMirroredPreview(t *testing.T) {
	initTestEnv(t)
	profile := newProfile(t, "user-1", "alice")
	link := newLink(t, profile.ID, "blog", 0, true)

	// 模拟流水线已经转存了一张预览图
	store := storage.Storage.(*storage.MemoryStorage)
	key := "link-preview-" + link.ID + "-1.png"
	if _, err := store.Upload(context.Background(), key, "image/png", strings.NewReader("png"), 3); err != nil {
		t.Fatalf("seed store failed: %v", err)
	}
	url := "http://storage.test/oneurl/" + key
	repository.DB.Model(link).Update("preview_image_url", url)

	if err := DeleteLink(profile.ID, link.ID); err != nil {
		t.Fatalf("DeleteLink failed: %v", err)
	}

	var count int64
	repository.DB.Model(&model.Link{}).Where("id = ?", link.ID).Count(&count)
	if count != 0 {
		t.Error("link still present after delete")
	}
	if _, ok := store.Get(key); ok {
		t.Error("mirrored preview image not cleaned up")
	}
}

func TestReorderLinksRejectsForeignIDs(t *testing.T) {
	initTestEnv(t)
	owner := newProfile(t, "user-1", "alice")
	other := newProfile(t, "user-2", "bob")
	a := newLink(t, owner.ID, "a", 0, true)
	b := newLink(t, owner.ID, "b", 1, true)
	foreign := newLink(t, other.ID, "foreign", 0, true)

	if err := ReorderLinks(owner.ID, []string{a.ID, foreign.ID}); err == nil {
		t.Fatal("expected error for foreign link ID")
	}

	if err := ReorderLinks(owner.ID, []string{b.ID, a.ID}); err != nil {
		t.Fatalf("ReorderLinks failed: %v", err)
	}
	links, _ := GetLinksByProfile(owner.ID)
	if len(links) != 2 || links[0].ID != b.ID || links[1].ID != a.ID {
		t.Errorf("reorder not applied: %+v", links)
	}
}
