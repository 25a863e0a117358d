package corpus

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestIdent_UnmarshalBSON(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "PartNo", Value: " III "},
		{Key: "Name", Value: "Fundamental Rights"},
		{Key: "Articles", Value: bson.A{
			bson.D{{Key: "ArtNo", Value: int32(21)}, {Key: "ArtDesc", Value: "Protection of life."}},
			bson.D{{Key: "ArtNo", Value: "\t21A\n"}, {Key: "ArtDesc", Value: int32(7)}},
		}},
	})
	require.NoError(t, err)

	var part Part
	require.NoError(t, bson.Unmarshal(raw, &part))
	assert.Equal(t, Ident("III"), part.PartNo)
	require.Len(t, part.Articles, 2)
	assert.Equal(t, Ident("21"), part.Articles[0].ArtNo)
	assert.Equal(t, Ident("21A"), part.Articles[1].ArtNo)
	assert.Equal(t, Body(""), part.Articles[1].ArtDesc)
}

func TestIdent_BSONMatchesJSON(t *testing.T) {
	for _, id := range []string{" III ", "IV-A", "  21A\t"} {
		raw, err := bson.Marshal(bson.D{{Key: "PartNo", Value: id}})
		require.NoError(t, err)
		var fromBSON Part
		require.NoError(t, bson.Unmarshal(raw, &fromBSON))

		doc, err := json.Marshal(map[string]string{"PartNo": id})
		require.NoError(t, err)
		var fromJSON Part
		require.NoError(t, json.Unmarshal(doc, &fromJSON))

		assert.Equal(t, fromJSON.PartNo, fromBSON.PartNo, "identifier %q", id)
	}
}
