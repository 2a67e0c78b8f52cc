package util

import (
	"reflect"
	"testing"
)

func TestGetEnvList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{name: "comma separated", value: "SPD,DIS", want: []string{"SPD", "DIS"}},
		{name: "mixed separators", value: " SPD, DIS\tSS ", want: []string{"SPD", "DIS", "SS"}},
		{name: "only separators", value: " , ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IDISK_TEST_LIST", tt.value)
			got := GetEnvList("IDISK_TEST_LIST")
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("unexpected list: got %v want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBoolAndNumeric(t *testing.T) {
	t.Setenv("IDISK_TEST_BOOL", "true")
	t.Setenv("IDISK_TEST_NUM", "250")
	t.Setenv("IDISK_TEST_BAD", "yes")

	if !GetEnvBool("IDISK_TEST_BOOL", false) {
		t.Fatal("expected true")
	}
	if GetEnvBool("IDISK_TEST_BAD", false) {
		t.Fatal("expected default for unparsable bool")
	}
	if got := GetEnvNumeric("IDISK_TEST_NUM", 1); got != 250 {
		t.Fatalf("expected 250, got %v", got)
	}
	if got := GetEnvNumeric("IDISK_TEST_MISSING", 7); got != 7 {
		t.Fatalf("expected default 7, got %v", got)
	}
}
