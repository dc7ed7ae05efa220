// Package graph mirrors listings into a Neo4j city graph. It is a
// secondary store: ingestion treats graph failures as warnings, and the
// API uses it only for city-level browse endpoints.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/stayscout/stayscout/engine/domain"
)

// ListingGraph provides listing/city operations over a Neo4j driver.
type ListingGraph struct {
	driver neo4j.DriverWithContext
}

// New creates a ListingGraph.
func New(driver neo4j.DriverWithContext) *ListingGraph {
	return &ListingGraph{driver: driver}
}

// SaveListing upserts the listing node, its city node, and the
// LOCATED_IN edge between them. Listings without a city get the node
// but no edge.
func (g *ListingGraph) SaveListing(ctx context.Context, l domain.RawListing) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	node := nodeFromListing(l)
	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		cypher := `MERGE (n:Listing {id: $id}) SET n += $props`
		if _, err := tx.Run(ctx, cypher, map[string]any{
			"id":    node.ID,
			"props": listingProps(node),
		}); err != nil {
			return nil, err
		}
		if node.City == "" {
			return nil, nil
		}
		cypher = `MERGE (c:City {name: $city})
		          WITH c
		          MATCH (n:Listing {id: $id})
		          MERGE (n)-[:LOCATED_IN]->(c)`
		_, err := tx.Run(ctx, cypher, map[string]any{"city": node.City, "id": node.ID})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("graph: save listing %d: %w", l.ID, err)
	}
	return nil
}

// Cities returns every city with at least one listing, most listings first.
func (g *ListingGraph) Cities(ctx context.Context) ([]CityStat, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Listing)-[:LOCATED_IN]->(c:City)
	           RETURN c.name AS name, count(n) AS listings
	           ORDER BY listings DESC, name`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: cities: %w", err)
	}

	var stats []CityStat
	for result.Next(ctx) {
		rec := result.Record()
		name, _, err := neo4j.GetRecordValue[string](rec, "name")
		if err != nil {
			return nil, fmt.Errorf("graph: cities: %w", err)
		}
		count, _, err := neo4j.GetRecordValue[int64](rec, "listings")
		if err != nil {
			return nil, fmt.Errorf("graph: cities: %w", err)
		}
		stats = append(stats, CityStat{Name: name, Listings: count})
	}
	return stats, result.Err()
}

// ListingsInCity returns the listings located in a city, best rated first.
func (g *ListingGraph) ListingsInCity(ctx context.Context, city string) ([]ListingNode, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (n:Listing)-[:LOCATED_IN]->(c:City {name: $city})
	           RETURN n ORDER BY n.rating DESC`
	result, err := sess.Run(ctx, cypher, map[string]any{"city": city})
	if err != nil {
		return nil, fmt.Errorf("graph: listings in %s: %w", city, err)
	}

	var nodes []ListingNode
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, fmt.Errorf("graph: listings in %s: %w", city, err)
		}
		nodes = append(nodes, listingFromProps(node.Props))
	}
	return nodes, result.Err()
}

func nodeFromListing(l domain.RawListing) ListingNode {
	return ListingNode{
		ID:     l.ID,
		Title:  l.Title,
		City:   l.City.Name,
		Rating: l.Rating,
		URL:    l.URL,
	}
}

func listingProps(n ListingNode) map[string]any {
	return map[string]any{
		"id":     n.ID,
		"title":  n.Title,
		"city":   n.City,
		"rating": n.Rating,
		"url":    n.URL,
	}
}

func listingFromProps(props map[string]any) ListingNode {
	n := ListingNode{}
	if v, ok := props["id"].(int64); ok {
		n.ID = v
	}
	if v, ok := props["title"].(string); ok {
		n.Title = v
	}
	if v, ok := props["city"].(string); ok {
		n.City = v
	}
	if v, ok := props["rating"].(float64); ok {
		n.Rating = v
	}
	if v, ok := props["url"].(string); ok {
		n.URL = v
	}
	return n
}
