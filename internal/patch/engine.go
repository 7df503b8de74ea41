// Package patch rewrites pinned literal values inside Steam's minified
// library bundle. The bundle has no grammar worth parsing, so every value
// is bounded by an exact anchor fragment; if any anchor is missing the
// target is left byte-identical, and every write is re-read and compared
// field by field before the patch counts as applied.
package patch

import (
	"fmt"
	"os"

	"github.com/serious-angel/steam-client-custom-toasts/internal/logging"
)

// VerifyError reports a post-write mismatch: the file was rewritten, then
// read back with values diverging from the required ones. The mutated file
// is left in place; the pre-patch backup is the recovery path.
type VerifyError struct {
	Target string
	Field  string
	Want   string
	Got    string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verification mismatch in %s: %s is %q, want %q", e.Target, e.Field, e.Got, e.Want)
}

// ApplyScript patches the script bundle in place and verifies the write.
func ApplyScript(path string, script Script, req Required) error {
	return applyFile(path, "ApplyScript",
		func(text string) (string, error) { return script.Rewrite(path, text, req) },
		func(text string) error { return script.Verify(path, text, req) },
	)
}

// ApplyStylesheet patches the stylesheet in place and verifies the write.
func ApplyStylesheet(path string, sheet Stylesheet, req Required) error {
	return applyFile(path, "ApplyStylesheet",
		func(text string) (string, error) { return sheet.Rewrite(path, text, req) },
		func(text string) error { return sheet.Verify(path, text, req) },
	)
}

// ReadScriptValues extracts the script target's current values without
// writing anything.
func ReadScriptValues(path string, script Script) (ScriptValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScriptValues{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return script.Extract(path, string(data))
}

// ReadStylesheetValues extracts the stylesheet target's current rule state
// without writing anything.
func ReadStylesheetValues(path string, sheet Stylesheet) (StylesheetValues, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StylesheetValues{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return sheet.Extract(path, string(data))
}

// applyFile runs the shared patch sequence: read, rewrite in memory (every
// anchor validated before any write), overwrite, re-read, verify.
func applyFile(path, op string, rewrite func(string) (string, error), verify func(string) error) error {
	timer := logging.StartTimer(logging.CategoryPatch, op)
	defer timer.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		logging.PatchError("%s: read failed: %v", op, err)
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	out, err := rewrite(string(data))
	if err != nil {
		logging.PatchError("%s: %v (file untouched)", op, err)
		return err
	}
	logging.PatchDebug("%s: rewriting %s (%d -> %d bytes)", op, path, len(data), len(out))

	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		logging.PatchError("%s: write failed: %v", op, err)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		logging.PatchError("%s: re-read failed: %v", op, err)
		return fmt.Errorf("failed to re-read %s: %w", path, err)
	}

	if err := verify(string(written)); err != nil {
		logging.PatchError("%s: %v", op, err)
		return err
	}

	logging.Patch("%s: %s patched and verified", op, path)
	return nil
}
