package harness

import "testing"

func Test_All_Scenarios_Pass(t *testing.T) {
	t.Parallel()

	for _, s := range All() {
		s := s

		t.Run(s.Name, func(t *testing.T) {
			t.Parallel()

			result := s.Run()
			if !result.Passed {
				t.Errorf("scenario %q failed: %s", s.Name, result.Detail)
			}
		})
	}
}

func Test_Filter_Matches_Substring_Case_Sensitively(t *testing.T) {
	t.Parallel()

	all := All()

	got := Filter(all, []string{"nested"})
	if len(got) != 2 {
		t.Fatalf("Filter(nested) = %d scenarios, want 2", len(got))
	}

	for _, s := range got {
		if s.Name != "nested-not-detected" && s.Name != "nested-detected" {
			t.Errorf("unexpected scenario in filtered set: %s", s.Name)
		}
	}

	if got := Filter(all, []string{"Nested"}); len(got) != 0 {
		t.Errorf("Filter(Nested) = %d scenarios, want 0 (case-sensitive)", len(got))
	}

	if got := Filter(all, nil); len(got) != len(all) {
		t.Errorf("Filter(nil) = %d scenarios, want all %d", len(got), len(all))
	}
}
