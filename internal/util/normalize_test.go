package util

import "testing"

func TestCanonicalEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"news@Example.com", "news@example.com"},
		{"NEWS@example.com ", "news@example.com"},
		{"  user+tag@EXAMPLE.com\t", "user+tag@example.com"}, // aliases are kept
		{"", ""},
	}
	for _, tc := range tests {
		if got := CanonicalEmail(tc.in); got != tc.want {
			t.Errorf("CanonicalEmail(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseFrom(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantEmail string
	}{
		{`Newsletter <news@example.com>`, "Newsletter", "news@example.com"},
		{`"Shop, Inc." <Deals@Shop.com>`, "Shop, Inc.", "Deals@Shop.com"},
		{`NEWS@example.com `, "News", "NEWS@example.com"},
		{`jane.doe@example.com`, "Jane Doe", "jane.doe@example.com"},
		{`élodie.martin@example.fr`, "Élodie Martin", "élodie.martin@example.fr"},
		{`ölçer_ışık@example.com.tr`, "Ölçer Işık", "ölçer_ışık@example.com.tr"},
		{`=?UTF-8?Q?Caf=C3=A9?= <cafe@example.com>`, "Café", "cafe@example.com"},
		{`Broken Name <not an address>`, "Broken Name", "not an address"},
		{``, UnknownSender, ""},
	}
	for _, tc := range tests {
		name, email := ParseFrom(tc.in)
		if name != tc.wantName || email != tc.wantEmail {
			t.Errorf("ParseFrom(%q) = (%q, %q); want (%q, %q)", tc.in, name, email, tc.wantName, tc.wantEmail)
		}
	}
}
