package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"winamp-block/internal/database"
)

type cliTestEnv struct {
	dbDir   string
	blockID string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	dbDir := filepath.Join(base, "database")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_DIR", dbDir)
	t.Setenv("MEDIA_DIR", filepath.Join(base, "media"))
	t.Setenv("SKIN_HOST", "")
	t.Setenv("SKIN_CDN_HOST", "")
	t.Setenv("DEFAULT_SKIN_URL", "")

	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(dbDir, "blocks.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	defer db.Close()

	b, err := db.CreateBlock(ctx, database.Block{
		Name:       database.BlockNamePlayer,
		Attributes: database.Attributes{"currentSkin": "https://example.org/skins/base.wsz"},
	})
	if err != nil {
		t.Fatalf("CreateBlock: %v", err)
	}
	if _, err := db.AddMedia(ctx, database.Media{
		Name:     "track01.mp3",
		Path:     filepath.Join(base, "media", "track01.mp3"),
		URL:      "/files/track01.mp3",
		MimeType: "audio/mpeg",
		Size:     4,
	}); err != nil {
		t.Fatalf("AddMedia: %v", err)
	}

	return &cliTestEnv{dbDir: dbDir, blockID: b.ClientID}
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, cc := newRootCommand()
	defer cc.close()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBlocksListJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "blocks", "list")
	if err != nil {
		t.Fatalf("blocks list: %v", err)
	}

	var blocks []database.Block
	if err := json.Unmarshal([]byte(out), &blocks); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(blocks) != 1 || blocks[0].ClientID != env.blockID {
		t.Errorf("blocks = %+v, want one block %s", blocks, env.blockID)
	}
}

func TestBlocksShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, "blocks", "show", env.blockID)
	if err != nil {
		t.Fatalf("blocks show: %v", err)
	}
	var b database.Block
	if err := json.Unmarshal([]byte(out), &b); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if b.Attributes.String("currentSkin") == "" {
		t.Error("expected currentSkin attribute in output")
	}

	if _, err := runCLI(t, "blocks", "show", "nope"); err == nil {
		t.Error("expected error for unknown block")
	}
	if _, err := runCLI(t, "blocks", "show"); err == nil {
		t.Error("expected argument error")
	}
}

func TestMissingDatabase(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_DIR", filepath.Join(t.TempDir(), "absent"))

	if _, err := runCLI(t, "blocks", "list"); err == nil {
		t.Error("expected error when the database does not exist")
	}
}

func TestSkinResolve(t *testing.T) {
	setupCLITestEnv(t)

	tests := []struct {
		name       string
		identifier string
		valid      bool
	}{
		{"museum url", "https://skins.webamp.org/skin/0a1b2c3d/base.wsz/", true},
		{"empty uses default", "", true},
		{"foreign url", "https://example.org/skins/base.wsz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, "skin", "resolve", tt.identifier)
			if err != nil {
				t.Fatalf("skin resolve: %v", err)
			}
			var res skinResult
			if err := json.Unmarshal([]byte(out), &res); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if res.Valid != tt.valid {
				t.Errorf("valid = %v, want %v", res.Valid, tt.valid)
			}
			if tt.valid && res.URL == "" {
				t.Error("expected a resolved URL")
			}
		})
	}
}

func TestImport(t *testing.T) {
	env := setupCLITestEnv(t)

	wpl := filepath.Join(t.TempDir(), "list.wpl")
	doc := `<?xml version="1.0"?>
<smil><head><title>Mix</title></head><body><seq>
<media src="C:\Music\track01.mp3"/>
<media src="C:\Music\missing.flac"/>
</seq></body></smil>`
	if err := os.WriteFile(wpl, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "import", env.blockID, wpl)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var res importResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if res.Tracks != 1 {
		t.Errorf("tracks = %d, want 1", res.Tracks)
	}
	if len(res.Missing) != 1 {
		t.Errorf("missing = %v, want one entry", res.Missing)
	}

	// The lock is released after the command, so a second run succeeds.
	if _, err := runCLI(t, "import", env.blockID, wpl); err != nil {
		t.Errorf("second import: %v", err)
	}
}

func TestImportRefusedWhileLocked(t *testing.T) {
	env := setupCLITestEnv(t)

	ctx := newCommandContext(new(string), new(bool))
	if err := ctx.exclusive(); err != nil {
		t.Fatalf("exclusive: %v", err)
	}
	defer ctx.close()

	wpl := filepath.Join(t.TempDir(), "list.wpl")
	if err := os.WriteFile(wpl, []byte(`<smil><body><seq/></body></smil>`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := runCLI(t, "import", env.blockID, wpl)
	if err == nil || !strings.Contains(err.Error(), "stop the server") {
		t.Errorf("expected lock error, got %v", err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"ID", "Tracks"}, [][]string{{"abc", "3"}, {"def"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"ID", "TRACKS", "abc", "def"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("expected empty output without headers")
	}
}

func TestWantJSON(t *testing.T) {
	force := true
	ctx := newCommandContext(new(string), &force)
	if !ctx.wantJSON(&bytes.Buffer{}) {
		t.Error("--json should force JSON")
	}

	ctx = newCommandContext(new(string), new(bool))
	if !ctx.wantJSON(&bytes.Buffer{}) {
		t.Error("non-terminal writers should get JSON")
	}
}
