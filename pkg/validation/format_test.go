package validation

import "testing"

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{name: "Valid pretty format", format: "pretty"},
		{name: "Valid csv format", format: "csv"},
		{name: "Valid json format", format: "json"},
		{name: "Valid yaml format", format: "yaml"},
		{name: "Valid xlsx format", format: "xlsx"},
		{name: "Invalid format", format: "html", expectErr: true},
		{name: "Empty format", format: "", expectErr: true},
		{name: "Case sensitive - uppercase", format: "PRETTY", expectErr: true},
		{name: "Leading/trailing spaces", format: " pretty ", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateOutputFormat(%q) expected error but got none", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateOutputFormat(%q) unexpected error: %v", tt.format, err)
			}
		})
	}
}
