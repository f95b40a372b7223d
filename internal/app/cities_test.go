package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing_catalog/internal/app"
	"pricing_catalog/internal/domain"
)

func TestNormalizeCityName(t *testing.T) {
	cases := map[string]string{
		"Istanbul":         "istanbul",
		"  istanbul ":      "istanbul",
		"Istanbul  ":       "istanbul",
		"New   York\tCity": "new york city",
		"\n SAN JOSE  ":    "san jose",
	}
	for in, want := range cases {
		got, err := app.NormalizeCityName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := app.NormalizeCityName(in)
		assert.True(t, domain.IsValidation(err), "input %q", in)
	}
}

func TestSanitizeCityName_PreservesCase(t *testing.T) {
	assert.Equal(t, "New York", app.SanitizeCityName("  New    York "))
	assert.Equal(t, "", app.SanitizeCityName("   "))
}

func TestEnsureCity_IdempotentAcrossVariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	first, err := f.cities.EnsureCity(ctx, u, "Istanbul")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	for _, v := range []string{" istanbul ", "Istanbul  ", "ISTANBUL", "istanbul"} {
		c, err := f.cities.EnsureCity(ctx, u, v)
		require.NoError(t, err)
		assert.Equal(t, first.ID, c.ID, "variant %q", v)
		assert.Equal(t, "istanbul", c.NormalizedName)
	}
	assert.Equal(t, 1, f.cityCount(t, u))
}

func TestEnsureCity_DisplayNameDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	a, err := f.cities.EnsureCity(ctx, u, "Istanbul")
	require.NoError(t, err)
	b, err := f.cities.EnsureCity(ctx, u, "ISTANBUL")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "ISTANBUL", b.Name)

	cs, err := f.cities.ListCities(ctx, u)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "ISTANBUL", cs[0].Name)
	assert.Equal(t, "istanbul", cs[0].NormalizedName)
}

func TestEnsureCity_BlankCreatesNothing(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@example.com")

	for _, in := range []string{"", "   "} {
		_, err := f.cities.EnsureCity(context.Background(), u, in)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve), "input %q", in)
		assert.Equal(t, "city_name", ve.Field)
	}
	assert.Zero(t, f.cityCount(t, u))
}

func TestEnsureCity_TenantsDoNotShareCities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "a@example.com")
	u2 := f.user(t, "b@example.com")

	a, err := f.cities.EnsureCity(ctx, u1, "Izmir")
	require.NoError(t, err)
	b, err := f.cities.EnsureCity(ctx, u2, "izmir")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	// the first tenant's display name is untouched
	cs, err := f.cities.ListCities(ctx, u1)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "Izmir", cs[0].Name)
}

func TestEnsureCity_ConcurrentCallsYieldOneRow(t *testing.T) {
	f := newFileFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	const n = 16
	ids := make([]int64, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	variants := []string{"Antalya", " antalya", "ANTALYA ", "Antalya"}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := f.cities.EnsureCity(ctx, u, variants[i%len(variants)])
			ids[i], errs[i] = c.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.Equal(t, 1, f.cityCount(t, u))
}

func TestResolveCityID_ForeignIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u1 := f.user(t, "a@example.com")
	u2 := f.user(t, "b@example.com")

	c, err := f.cities.EnsureCity(ctx, u1, "Bodrum")
	require.NoError(t, err)

	for _, ref := range []domain.CityRef{
		{ID: ptr(c.ID)},
		{ID: ptr(c.ID), Name: ptr("Bodrum")},
		{ID: ptr(c.ID), Name: ptr("Hijacked")},
	} {
		id, err := f.cities.ResolveCityID(ctx, u2, ref)
		assert.Zero(t, id)
		assert.True(t, domain.IsNotFound(err))
		assert.EqualError(t, err, "selected city not found for this user")
	}

	// no rename leaked through
	cs, err := f.cities.ListCities(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, "Bodrum", cs[0].Name)
}

func TestResolveCityID_UnknownID(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@example.com")
	_, err := f.cities.ResolveCityID(context.Background(), u, domain.CityRef{ID: ptr(int64(9999))})
	assert.True(t, domain.IsNotFound(err))
}

func TestResolveCityID_ExplicitIDRenamesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	c, err := f.cities.EnsureCity(ctx, u, "Izmir")
	require.NoError(t, err)

	id, err := f.cities.ResolveCityID(ctx, u, domain.CityRef{ID: ptr(c.ID), Name: ptr(" Izmir   City ")})
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)
	assert.Equal(t, 1, f.cityCount(t, u))

	var name, normalized string
	require.NoError(t, f.db.QueryRow(`SELECT name, normalized_name FROM cities WHERE id = ?`, c.ID).Scan(&name, &normalized))
	assert.Equal(t, "Izmir City", name)
	assert.Equal(t, "izmir city", normalized)

	// the old name is now free and gets a brand new row
	again, err := f.cities.EnsureCity(ctx, u, "Izmir")
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, again.ID)
}

func TestResolveCityID_SameNormalizedNameKeepsRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	c, err := f.cities.EnsureCity(ctx, u, "Izmir")
	require.NoError(t, err)

	id, err := f.cities.ResolveCityID(ctx, u, domain.CityRef{ID: ptr(c.ID), Name: ptr("IZMIR")})
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)

	var name string
	require.NoError(t, f.db.QueryRow(`SELECT name FROM cities WHERE id = ?`, c.ID).Scan(&name))
	assert.Equal(t, "Izmir", name)
}

func TestResolveCityID_BlankNameWithIDIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	c, err := f.cities.EnsureCity(ctx, u, "Izmir")
	require.NoError(t, err)
	id, err := f.cities.ResolveCityID(ctx, u, domain.CityRef{ID: ptr(c.ID), Name: ptr("  ")})
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)
}

func TestResolveCityID_NameOnlyDelegatesToEnsure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	a, err := f.cities.ResolveCityID(ctx, u, domain.CityRef{Name: ptr("Cappadocia")})
	require.NoError(t, err)
	b, err := f.cities.ResolveCityID(ctx, u, domain.CityRef{Name: ptr("cappadocia ")})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveCityID_RequiresIDOrName(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "a@example.com")

	for _, ref := range []domain.CityRef{{}, {Name: ptr("")}, {Name: ptr("  ")}} {
		_, err := f.cities.ResolveCityID(context.Background(), u, ref)
		assert.True(t, domain.IsValidation(err))
	}
	assert.Zero(t, f.cityCount(t, u))
}

func TestResolveCityID_RenameOntoExistingCity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	izmir, err := f.cities.EnsureCity(ctx, u, "Izmir")
	require.NoError(t, err)
	_, err = f.cities.EnsureCity(ctx, u, "Ankara")
	require.NoError(t, err)

	_, err = f.cities.ResolveCityID(ctx, u, domain.CityRef{ID: ptr(izmir.ID), Name: ptr("ankara")})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "city_name", ve.Field)

	var name string
	require.NoError(t, f.db.QueryRow(`SELECT name FROM cities WHERE id = ?`, izmir.ID).Scan(&name))
	assert.Equal(t, "Izmir", name)
}

func TestListCities_CacheMissThenHitThenInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	_, err := f.cities.EnsureCity(ctx, u, "Bodrum")
	require.NoError(t, err)

	// miss populates
	cs, err := f.cities.ListCities(ctx, u)
	require.NoError(t, err)
	require.Len(t, cs, 1)
	require.True(t, f.cache.has(cityKey(u)))

	// hit keeps tenant id even though it is not serialized
	cs, err = f.cities.ListCities(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)
	assert.Equal(t, u, cs[0].UserID)

	// a write drops the cached list
	_, err = f.cities.EnsureCity(ctx, u, "Antalya")
	require.NoError(t, err)
	assert.False(t, f.cache.has(cityKey(u)))

	cs, err = f.cities.ListCities(ctx, u)
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "Antalya", cs[0].Name)
}

func TestCityResolver_WithoutCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "a@example.com")

	r := app.NewCityResolver(f.store, nil, 0)
	_, err := r.EnsureCity(ctx, u, "Side")
	require.NoError(t, err)
	cs, err := r.ListCities(ctx, u)
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}
