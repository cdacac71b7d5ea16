package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func childIDs(b *Block) []string {
	out := make([]string, len(b.InnerBlocks))
	for i, c := range b.InnerBlocks {
		out[i] = c.ClientID
	}
	return out
}

func TestCreateAndGetBlock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	created, err := db.CreateBlock(ctx, Block{
		Name:       BlockNamePlayer,
		Attributes: Attributes{"currentSkin": "https://skins.webamp.org/skin/abc/x.wsz/"},
	})
	if err != nil {
		t.Fatalf("CreateBlock failed: %v", err)
	}
	if created.ClientID == "" {
		t.Fatal("Expected a generated client id")
	}

	got, err := db.GetBlock(ctx, created.ClientID)
	if err != nil {
		t.Fatalf("GetBlock failed: %v", err)
	}
	if got.Name != BlockNamePlayer {
		t.Errorf("Expected name %q, got %q", BlockNamePlayer, got.Name)
	}
	if got.Attributes.String("currentSkin") != "https://skins.webamp.org/skin/abc/x.wsz/" {
		t.Errorf("Unexpected attributes: %v", got.Attributes)
	}
	if len(got.InnerBlocks) != 0 {
		t.Errorf("Expected no inner blocks, got %d", len(got.InnerBlocks))
	}
}

func TestGetBlockNotFound(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.GetBlock(context.Background(), "missing"); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestReplaceInnerBlocks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateBlock(ctx, Block{ClientID: "p", Name: BlockNamePlayer}); err != nil {
		t.Fatal(err)
	}

	first := []Block{
		{ClientID: "a", Name: BlockNameAudio, Attributes: Attributes{"id": "1", "src": "/files/1.mp3"}},
		{ClientID: "b", Name: BlockNameAudio, Attributes: Attributes{"id": "2", "src": "/files/2.mp3"}},
		{ClientID: "c", Name: BlockNameAudio, Attributes: Attributes{"id": "3", "src": "/files/3.mp3"}},
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", first); err != nil {
		t.Fatalf("ReplaceInnerBlocks failed: %v", err)
	}
	if err := db.SetOriginalContent(ctx, "b", "<figure></figure>"); err != nil {
		t.Fatalf("SetOriginalContent failed: %v", err)
	}

	// Reorder, drop a, add d
	second := []Block{
		{ClientID: "c", Name: BlockNameAudio, Attributes: Attributes{"id": "3", "src": "/files/3.mp3"}},
		{ClientID: "d", Name: BlockNameAudio, Attributes: Attributes{"src": "blob:http://localhost/x"}},
		{ClientID: "b", Name: BlockNameAudio, Attributes: Attributes{"id": "2", "src": "/files/2.mp3"}},
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", second); err != nil {
		t.Fatalf("ReplaceInnerBlocks failed: %v", err)
	}

	got, err := db.GetBlock(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if ids := childIDs(got); !reflect.DeepEqual(ids, []string{"c", "d", "b"}) {
		t.Fatalf("Expected children [c d b], got %v", ids)
	}
	for i, c := range got.InnerBlocks {
		if c.Position != i {
			t.Errorf("Child %s: expected position %d, got %d", c.ClientID, i, c.Position)
		}
		if c.ParentID != "p" {
			t.Errorf("Child %s: expected parent p, got %q", c.ClientID, c.ParentID)
		}
	}
	if got.InnerBlocks[2].OriginalContent != "<figure></figure>" {
		t.Error("Kept child lost its original content")
	}
	if got.InnerBlocks[1].OriginalContent != "" {
		t.Error("New child should have no original content")
	}

	if _, err := db.GetBlock(ctx, "a"); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Dropped child still stored: %v", err)
	}
}

func TestReplaceInnerBlocksEmpty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateBlock(ctx, Block{ClientID: "p", Name: BlockNamePlayer}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", []Block{{Name: BlockNameAudio}}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", nil); err != nil {
		t.Fatalf("ReplaceInnerBlocks(nil) failed: %v", err)
	}

	got, err := db.GetBlock(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.InnerBlocks) != 0 {
		t.Errorf("Expected no children, got %d", len(got.InnerBlocks))
	}
}

func TestReplaceInnerBlocksMissingParent(t *testing.T) {
	db := setupTestDB(t)

	err := db.ReplaceInnerBlocks(context.Background(), "nope", []Block{{Name: BlockNameAudio}})
	if !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestUpdateBlockAttributes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateBlock(ctx, Block{ClientID: "p", Name: BlockNamePlayer}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", []Block{
		{ClientID: "a", Name: BlockNameAudio, Attributes: Attributes{"src": "blob:http://localhost/x", "caption": "intro"}},
	}); err != nil {
		t.Fatal(err)
	}

	updated, err := db.UpdateBlockAttributes(ctx, "a", Attributes{"id": "7", "src": "/files/7.mp3", "caption": nil})
	if err != nil {
		t.Fatalf("UpdateBlockAttributes failed: %v", err)
	}
	want := Attributes{"id": "7", "src": "/files/7.mp3"}
	if !reflect.DeepEqual(updated.Attributes, want) {
		t.Errorf("Expected %v, got %v", want, updated.Attributes)
	}

	got, err := db.GetBlock(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.InnerBlocks[0].Attributes, want) {
		t.Errorf("Stored attributes %v, want %v", got.InnerBlocks[0].Attributes, want)
	}

	if _, err := db.UpdateBlockAttributes(ctx, "missing", Attributes{"x": "y"}); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestListBlocks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2"} {
		if _, err := db.CreateBlock(ctx, Block{ClientID: id, Name: BlockNamePlayer}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.CreateBlock(ctx, Block{ClientID: "other", Name: "core/paragraph"}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceInnerBlocks(ctx, "p1", []Block{{Name: BlockNameAudio}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter string
		want   int
	}{
		{"all top-level", "", 3},
		{"players only", BlockNamePlayer, 2},
		{"child name is not top-level", BlockNameAudio, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := db.ListBlocks(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListBlocks failed: %v", err)
			}
			if len(blocks) != tt.want {
				t.Errorf("Expected %d blocks, got %d", tt.want, len(blocks))
			}
		})
	}
}

func TestDeleteBlock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.CreateBlock(ctx, Block{ClientID: "p", Name: BlockNamePlayer}); err != nil {
		t.Fatal(err)
	}
	if err := db.ReplaceInnerBlocks(ctx, "p", []Block{{ClientID: "a", Name: BlockNameAudio}}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteBlock(ctx, "p"); err != nil {
		t.Fatalf("DeleteBlock failed: %v", err)
	}
	if _, err := db.GetBlock(ctx, "a"); !errors.Is(err, ErrBlockNotFound) {
		t.Error("Child should be deleted with its parent")
	}
	if err := db.DeleteBlock(ctx, "p"); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound on second delete, got %v", err)
	}
}

func TestSetOriginalContentMissing(t *testing.T) {
	db := setupTestDB(t)

	if err := db.SetOriginalContent(context.Background(), "missing", "x"); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestAttributesAccessors(t *testing.T) {
	t.Parallel()

	a := Attributes{"s": "v", "b": true, "n": 3.0}
	if a.String("s") != "v" || a.String("n") != "" || a.String("missing") != "" {
		t.Error("String accessor returned unexpected values")
	}
	if !a.Bool("b") || a.Bool("s") {
		t.Error("Bool accessor returned unexpected values")
	}
}
