package api

import (
	"github.com/wikiroute/wikiroute/internal/models"
)

// TitleLookup is the id/title index served by LookupHandler.
type TitleLookup interface {
	Title(id models.PageID) (string, bool)
	ID(title string) (models.PageID, bool)
	Prefix(prefix string, limit int) []models.TitleEntry
	Len() int
}

// GraphLookup is the exported graph served by GraphHandler.
type GraphLookup interface {
	Out(id models.PageID, limit int) []models.WeightedEdge
	In(id models.PageID, limit int) []models.WeightedEdge
	Degree(id models.PageID) models.Degree
	Len() int
	Nodes() int
	Reciprocal() int
}
