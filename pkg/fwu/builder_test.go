package fwu

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/fwumeta/pkg/codec"
)

func intPtr(i int) *int { return &i }

func withShape(numBanks, numImages int) Options {
	opts := DefaultOptions()
	opts.NumBanks = numBanks
	opts.ImagesPerBank = numImages
	return opts
}

func TestBuild_Defaults(t *testing.T) {
	md, err := Build(DefaultOptions())
	require.NoError(t, err)

	encoded, err := md.Reseal()
	require.NoError(t, err)
	assert.Len(t, encoded, 120)
	assert.Equal(t, codec.Version, md.Version)
	assert.Equal(t, uint32(0), md.ActiveIndex)
	assert.Equal(t, uint32(1), md.PreviousActiveIndex)
	assert.Equal(t, [4]uint8{0xFC, 0xFC, 0xFF, 0xFF}, md.BankState)

	r, err := FromMetadata(md)
	require.NoError(t, err)
	require.Len(t, r.Images, 1)
	img := r.Images[0]
	assert.NotEqual(t, uuid.Nil, img.TypeID)
	assert.NotEqual(t, uuid.Nil, img.LocationID)
	require.Len(t, img.Banks, 2)
	for _, b := range img.Banks {
		assert.Equal(t, img.TypeID, b.ImageID)
		assert.True(t, b.IsAccepted())
	}
	require.NoError(t, r.Validate())
}

func TestBuild_SingleBankClampsPrevious(t *testing.T) {
	md, err := Build(withShape(1, 1))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), md.PreviousActiveIndex)
	assert.Equal(t, [4]uint8{0xFC, 0xFF, 0xFF, 0xFF}, md.BankState)

	r, err := FromMetadata(md)
	require.NoError(t, err)
	assert.NoError(t, r.Validate())
}

func TestBuild_ExplicitIdentifiers(t *testing.T) {
	types := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	locs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}

	opts := withShape(4, 3)
	opts.ImageTypeIDs = types
	opts.LocationIDs = locs
	opts.ActiveIndex = 2
	opts.PreviousActiveIndex = intPtr(3)
	md, err := Build(opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), md.ActiveIndex)
	assert.Equal(t, uint32(3), md.PreviousActiveIndex)

	r, err := FromMetadata(md)
	require.NoError(t, err)
	assert.Equal(t, types, r.ImageTypeIDs())
	for i, img := range r.Images {
		assert.Equal(t, locs[i], img.LocationID)
	}
	assert.Equal(t, codec.MetadataSize(3, 4), int(r.MetadataSize))
}

func TestBuild_RandomIdentifiersDiffer(t *testing.T) {
	md, err := Build(withShape(2, 4))
	require.NoError(t, err)
	r, err := FromMetadata(md)
	require.NoError(t, err)

	seen := map[uuid.UUID]bool{}
	for _, img := range r.Images {
		assert.False(t, seen[img.TypeID])
		assert.False(t, seen[img.LocationID])
		seen[img.TypeID] = true
		seen[img.LocationID] = true
	}
}

func TestBuild_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Options)
		kind   codec.Kind
	}{
		{name: "version 0", mutate: func(o *Options) { o.Version = 0 }, kind: codec.KindUnsupportedVersion},
		{name: "version 1", mutate: func(o *Options) { o.Version = 1 }, kind: codec.KindUnsupportedVersion},
		{name: "version 3", mutate: func(o *Options) { o.Version = 3 }, kind: codec.KindUnsupportedVersion},
		{name: "zero banks", mutate: func(o *Options) { o.NumBanks = 0 }, kind: codec.KindInvalidArgument},
		{name: "too many banks", mutate: func(o *Options) { o.NumBanks = 5 }, kind: codec.KindInvalidArgument},
		{name: "negative banks", mutate: func(o *Options) { o.NumBanks = -1 }, kind: codec.KindInvalidArgument},
		{name: "zero images", mutate: func(o *Options) { o.ImagesPerBank = 0 }, kind: codec.KindInvalidArgument},
		{name: "too many images", mutate: func(o *Options) { o.ImagesPerBank = codec.MaxImages + 1 }, kind: codec.KindInvalidArgument},
		{name: "active out of range", mutate: func(o *Options) { o.ActiveIndex = 2 }, kind: codec.KindInvalidArgument},
		{name: "previous out of range", mutate: func(o *Options) { o.PreviousActiveIndex = intPtr(2) }, kind: codec.KindInvalidArgument},
		{
			name: "type id shortfall",
			mutate: func(o *Options) {
				o.ImagesPerBank = 2
				o.ImageTypeIDs = []uuid.UUID{uuid.New()}
			},
			kind: codec.KindIdentifierListShortfall,
		},
		{
			name: "location id shortfall",
			mutate: func(o *Options) {
				o.ImagesPerBank = 3
				o.LocationIDs = []uuid.UUID{uuid.New(), uuid.New()}
			},
			kind: codec.KindIdentifierListShortfall,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.mutate(&opts)
			_, err := Build(opts)
			require.Error(t, err)
			assert.Equal(t, tc.kind, codec.KindOf(err), "error: %v", err)
		})
	}
}

func TestBuild_ZeroOptionsRejected(t *testing.T) {
	_, err := Build(Options{})
	require.Error(t, err)
	assert.Equal(t, codec.KindUnsupportedVersion, codec.KindOf(err))
}
