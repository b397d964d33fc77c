package models

import "testing"

func TestRecommendRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *RecommendRequest
		wantErr bool
	}{
		{"empty title", &RecommendRequest{Title: ""}, true},
		{"valid title", &RecommendRequest{Title: "Avatar"}, false},
		{"whitespace only", &RecommendRequest{Title: " \t"}, true},
		{"padded title is kept", &RecommendRequest{Title: " Avatar "}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
