package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/food-share/internal/model"
)

func ids(ds []*model.Donation) []string {
	res := make([]string, len(ds))
	for i, d := range ds {
		res[i] = d.ID
	}
	return res
}

func TestView_SearchVeg(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "a", "Fresh Vegetables", "", "Bakery")
	env.seed(t, "b", "Bread", "", "Bakery")
	env.seed(t, "c", "Box", "mixed veggies", "Market")
	env.seed(t, "d", "Soup", "", "VEGAN Kitchen")

	got, err := env.views.AvailableFor(ctx, model.RoleReceiver, "veg")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c", "d"}, ids(got))

	all, err := env.views.AvailableFor(ctx, model.RoleReceiver, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestView_AvailableForRoles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "a", "Apples", "", "Orchard")
	env.seed(t, "b", "Bread", "", "Bakery")
	_, err := env.claims.Claim(ctx, "b", "r1")
	require.NoError(t, err)

	for _, role := range []model.Role{model.RoleDonor, model.RoleReceiver} {
		got, err := env.views.AvailableFor(ctx, role, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, ids(got), role)
	}
	got, err := env.views.AvailableFor(ctx, model.RoleAdmin, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(got))
}

func TestView_ForDonorAndClaimant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seed(t, "a", "Apples", "", "Orchard")
	env.seed(t, "b", "Bread", "", "Bakery")
	_, err := env.claims.Claim(ctx, "a", "r1")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, "b", "r2")
	require.NoError(t, err)

	mine, err := env.views.ForDonor(ctx, "donor-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(mine))

	claimed, err := env.views.ForClaimant(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(claimed))

	_, err = env.claims.Cancel(ctx, "a", "r1")
	require.NoError(t, err)
	claimed, err = env.views.ForClaimant(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, claimed)

	_, err = env.views.ForDonor(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestView_DonorStatsBadges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	donor := Donor{ID: "donor-1", Name: "Bakery"}
	post := func(n int) {
		for i := 0; i < n; i++ {
			_, err := env.posts.Post(ctx, donor, PostDonationInput{
				Name: fmt.Sprintf("Loaf %d", i), Quantity: "1", Expiry: "tomorrow", Location: "Main St",
			})
			require.NoError(t, err)
		}
	}

	post(4)
	st, err := env.views.DonorStats(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Empty(t, st.Badges)

	post(1)
	st, err = env.views.DonorStats(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, []Badge{BadgeBronze}, st.Badges)

	post(15)
	mine, err := env.views.ForDonor(ctx, "donor-1")
	require.NoError(t, err)
	_, err = env.claims.Claim(ctx, mine[0].ID, "r1")
	require.NoError(t, err)

	st, err = env.views.DonorStats(ctx, "donor-1")
	require.NoError(t, err)
	assert.Equal(t, 20, st.Total)
	assert.Equal(t, 1, st.Claimed)
	assert.Equal(t, 19, st.Available)
	assert.Equal(t, []Badge{BadgeBronze, BadgeSilver, BadgeGold}, st.Badges)
}

func TestView_SearchUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, in := range []RegisterInput{
		{Name: "Alice", Email: "alice@example.org", Role: model.RoleDonor},
		{Name: "Bob", Email: "bob@foodbank.org", Role: model.RoleReceiver},
		{Name: "Carol", Email: "carol@example.org", Role: model.RoleAdmin},
	} {
		_, err := env.accounts.Register(ctx, in)
		require.NoError(t, err)
	}

	got, err := env.views.SearchUsers(ctx, "FOODBANK")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].Name)

	got, err = env.views.SearchUsers(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Carol", got[0].Name)

	got, err = env.views.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
