package davpath

import "testing"

func TestSafeJoin(t *testing.T) {
	cases := []struct {
		root string
		segs []string
		want string
	}{
		{"/export", nil, "/export"},
		{"export", nil, "/export"},
		{"/export/", []string{"a.txt"}, "/export/a.txt"},
		{"/export", []string{"/a", "/b/"}, "/export/a/b"},
		{"/", []string{"a"}, "/a"},
		{"", []string{"a", "b"}, "/a/b"},
		{"/export", []string{""}, "/export"},
	}
	for _, c := range cases {
		got := SafeJoin(c.root, c.segs...)
		if got != c.want {
			t.Errorf("SafeJoin(%q, %v) = %q, want %q", c.root, c.segs, got, c.want)
		}
		if got == "" || got[0] != '/' {
			t.Errorf("SafeJoin(%q, %v) = %q does not start with /", c.root, c.segs, got)
		}
		if got != "/" {
			// never contains "//"
			for i := 0; i < len(got)-1; i++ {
				if got[i] == '/' && got[i+1] == '/' {
					t.Errorf("SafeJoin(%q, %v) = %q contains //", c.root, c.segs, got)
				}
			}
		}
	}
}

func TestSafeJoinIdempotent(t *testing.T) {
	a, b, c := "/export", "dir", "file.txt"
	left := SafeJoin(SafeJoin(a, b), c)
	right := SafeJoin(a, b, c)
	if left != right {
		t.Errorf("SafeJoin not idempotent under nesting: %q != %q", left, right)
	}
}

func TestURLJoin(t *testing.T) {
	got := URLJoin("http://example.com/dav/", "a", "b.txt")
	want := "http://example.com/dav/a/b.txt"
	if got != want {
		t.Errorf("URLJoin = %q, want %q", got, want)
	}
}

func TestClarkSplit(t *testing.T) {
	cases := []struct {
		tag      string
		wantNS   string
		wantName string
	}{
		{"{DAV:}getetag", "DAV:", "getetag"},
		{"displayname", "", "displayname"},
		{"{http://apache.org/dav/props/}executable", "http://apache.org/dav/props/", "executable"},
	}
	for _, c := range cases {
		ns, name := ClarkSplit(c.tag)
		if ns != c.wantNS || name != c.wantName {
			t.Errorf("ClarkSplit(%q) = (%q, %q), want (%q, %q)", c.tag, ns, name, c.wantNS, c.wantName)
		}
	}
}

func TestClarkJoin(t *testing.T) {
	if got := ClarkJoin("DAV:", "getetag"); got != "{DAV:}getetag" {
		t.Errorf("ClarkJoin = %q", got)
	}
	if got := ClarkJoin("", "foo"); got != "foo" {
		t.Errorf("ClarkJoin with empty ns = %q", got)
	}
}

func TestNameAndDir(t *testing.T) {
	if got := Name("/dir1/a.txt"); got != "a.txt" {
		t.Errorf("Name = %q", got)
	}
	if got := Name("/dir1/"); got != "dir1" {
		t.Errorf("Name(trailing slash) = %q", got)
	}
	if got := Dir("/dir1/a.txt"); got != "/dir1" {
		t.Errorf("Dir = %q", got)
	}
	if got := Dir("/a.txt"); got != "/" {
		t.Errorf("Dir(root child) = %q", got)
	}
}

func TestRFC3339Empty(t *testing.T) {
	if got := RFC3339(0); got != "" {
		t.Errorf("RFC3339(0) = %q, want empty", got)
	}
}
