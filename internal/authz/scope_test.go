package authz

import "testing"

func TestMatchesScope(t *testing.T) {
	cases := []struct {
		name      string
		granted   string
		requested string
		want      bool
	}{
		{"exact match", "read:upload", "read:upload", true},
		{"global wildcard", "*", "admin:tenant", true},
		{"prefix wildcard matches direct child", "read:*", "read:upload", true},
		{"prefix wildcard matches nested child", "read:*", "read:upload:nested", true},
		{"prefix wildcard requires colon boundary", "read:*", "readonly:upload", false},
		{"different verb denied", "read:upload", "write:upload", false},
		{"case sensitive", "Read:Upload", "read:upload", false},
		{"wildcard scope itself does not match unrelated exact", "write:*", "read:upload", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MatchesScope(tc.granted, tc.requested); got != tc.want {
				t.Errorf("MatchesScope(%q, %q) = %v, want %v", tc.granted, tc.requested, got, tc.want)
			}
		})
	}
}

func TestAuthorize_DeniesByDefault(t *testing.T) {
	if Authorize(nil, "read:upload") {
		t.Fatal("empty grant set must deny")
	}
	if Authorize([]string{"write:notification"}, "read:upload") {
		t.Fatal("unrelated grant must deny")
	}
	if !Authorize([]string{"write:notification", "read:*"}, "read:upload") {
		t.Fatal("matching grant among several must allow")
	}
}
