package diff

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func gitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	root := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
		)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init")
	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def foo():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	run("add", "a.py")
	run("commit", "-m", "initial")
	return root
}

func TestChangedFiles(t *testing.T) {
	root := gitRepo(t)

	if files := ChangedFiles(context.Background(), root, "", nil); len(files) != 0 {
		t.Errorf("clean tree reported changes: %v", files)
	}

	if err := os.WriteFile(filepath.Join(root, "a.py"), []byte("def bar():\n    pass\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	files := ChangedFiles(context.Background(), root, "", nil)
	if len(files) != 1 || files[0] != "a.py" {
		t.Errorf("ChangedFiles() = %v, want [a.py]", files)
	}
}

func TestChangedFilesDegradesOnError(t *testing.T) {
	if files := ChangedFiles(context.Background(), t.TempDir(), "", nil); files != nil {
		t.Errorf("non-repo returned %v, want nil", files)
	}
}
