package handlers

import "testing"

func TestValidateRegister(t *testing.T) {
	valid := registerRequest{Name: "Asha", Email: "asha@example.com", Password: "correct-horse"}
	if errs := validateRegister(valid); len(errs) != 0 {
		t.Fatalf("valid request rejected: %v", errs)
	}

	cases := []struct {
		name  string
		req   registerRequest
		field string
	}{
		{"blank name", registerRequest{Name: " ", Email: "a@b.com", Password: "longenough"}, "name"},
		{"bad email", registerRequest{Name: "A", Email: "not-an-email", Password: "longenough"}, "email"},
		{"empty email", registerRequest{Name: "A", Email: "", Password: "longenough"}, "email"},
		{"short password", registerRequest{Name: "A", Email: "a@b.com", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := validateRegister(tc.req)
			if len(errs) == 0 {
				t.Fatal("expected validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error on field %q, got %v", tc.field, errs)
			}
		})
	}
}
