package archive

import (
	"strings"
	"testing"

	"github.com/txstate-etc/mgnl-backup/internal/nodes"
	"github.com/txstate-etc/mgnl-backup/internal/repo"
)

func TestFilename(t *testing.T) {
	p := nodes.PathInfo{Repo: repo.Website, Path: "/gato/subpage1/subpage2/file name.odf"}
	got := Filename(p)
	want := "website%2Fgato%2Fsubpage1%2Fsubpage2%2Ffile%20name.odf.xml"
	if got != want {
		t.Fatalf("Filename = %q, want %q", got, want)
	}
}

func TestFilenameHasNoSeparators(t *testing.T) {
	cases := []nodes.PathInfo{
		{Repo: repo.Dam, Path: "/gato/a b/c d.gif"},
		{Repo: repo.Website, Path: "/x/y/z"},
		{Repo: repo.Users, Path: "/admin"},
	}
	for _, p := range cases {
		name := Filename(p)
		if strings.ContainsAny(name, "/ ") {
			t.Errorf("Filename(%s%s) = %q contains unencoded separator", p.Repo, p.Path, name)
		}
	}
}

func TestPath(t *testing.T) {
	p := nodes.PathInfo{Repo: repo.Website, Path: "/gato/subpage1/subpage2/file name.odf"}
	got := Path("/mnt/nfs/archive", "20180506", p)
	want := "/mnt/nfs/archive/website/gato/20180506"
	if got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
}

func TestPathSiteOnly(t *testing.T) {
	p := nodes.PathInfo{Repo: repo.Dam, Path: "/gato"}
	if got := Path("/a", "x", p); got != "/a/dam/gato/x" {
		t.Fatalf("Path = %q, want /a/dam/gato/x", got)
	}
}

func TestPathEmptySite(t *testing.T) {
	p := nodes.PathInfo{Repo: repo.Dam, Path: ""}
	if got := Path("/a", "x", p); got != "/a/dam//x" {
		t.Fatalf("Path = %q, want /a/dam//x", got)
	}
}
