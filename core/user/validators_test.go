package user

import (
	"testing"

	"github.com/trezcool/darasa/core"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		pwd      string
		usrName  string
		uname    string
		email    string
		wantText string
	}{
		{name: "too short", pwd: "short1", wantText: pwdTooShortText},
		{name: "all numeric", pwd: "123456789", wantText: pwdNotAllNumText},
		{name: "contains space", pwd: "pass word1", wantText: pwdNoSpaceText},
		{
			name:     "similar to username",
			pwd:      "jonsnow01",
			uname:    "jonsnow011",
			wantText: pwdAttrSimText,
		},
		{
			name:     "similar to email",
			pwd:      "jon.snow@test.test",
			email:    "jon.snow@test.test",
			wantText: pwdAttrSimText,
		},
		{
			name:     "similar to name ignoring case",
			pwd:      "JONSNOWW",
			usrName:  "Jon Snoww",
			wantText: pwdAttrSimText,
		},
		{name: "valid", pwd: "Unr3lat3d!"},
		{name: "valid with empty attrs", pwd: "s3cureEnough"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.pwd, tt.usrName, tt.uname, tt.email)
			if tt.wantText == "" {
				if err != nil {
					t.Errorf("validatePassword() error = %v, want nil", err)
				}
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if !ok {
				t.Fatalf("validatePassword() error = %v, want ValidationError", err)
			}
			if got := vErr.Fields[0].Error; got != tt.wantText {
				t.Errorf("validatePassword() field error = %q, want %q", got, tt.wantText)
			}
		})
	}
}
