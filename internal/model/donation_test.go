package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestDonationValidate(t *testing.T) {
	cases := []struct {
		name    string
		d       Donation
		wantErr bool
	}{
		{"available without claimant", Donation{ID: "1", Status: DonationStatusAvailable}, false},
		{"claimed with claimant", Donation{ID: "1", Status: DonationStatusClaimed, ClaimantID: strPtr("r1")}, false},
		{"claimed without claimant", Donation{ID: "1", Status: DonationStatusClaimed}, true},
		{"available with claimant", Donation{ID: "1", Status: DonationStatusAvailable, ClaimantID: strPtr("r1")}, true},
		{"completed with claimant", Donation{ID: "1", Status: DonationStatusCompleted, ClaimantID: strPtr("r1")}, true},
		{"claimed with empty claimant", Donation{ID: "1", Status: DonationStatusClaimed, ClaimantID: strPtr("")}, true},
		{"unknown status", Donation{ID: "1", Status: "reserved"}, true},
		{"missing id", Donation{Status: DonationStatusAvailable}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.d.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDonationStatusAcceptsLegacyReserved(t *testing.T) {
	var d Donation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","status":"reserved","claimantId":"r1"}`), &d))
	assert.Equal(t, DonationStatusClaimed, d.Status)
	assert.Equal(t, "r1", d.ClaimedBy())

	assert.Error(t, json.Unmarshal([]byte(`{"id":"1","status":"gone"}`), &d))
}

func TestDonationCloneIsDeep(t *testing.T) {
	d := &Donation{ID: "1", Status: DonationStatusClaimed, ClaimantID: strPtr("r1")}
	cp := d.Clone()
	*cp.ClaimantID = "r2"
	assert.Equal(t, "r1", d.ClaimedBy())
}
