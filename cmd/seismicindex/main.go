// Command seismicindex is a small CLI demo wiring together the engine's
// core: build a segment from a handful of documents, finalize it (flat or
// clustered depending on size), and run a top-k query against it. It is
// not a production entry point — the host search engine's transport and
// shard routing are out of scope (spec §1 Non-goals) — but it exercises
// the same flag-parsing style as the teacher's root main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"seismic/internal/circuitbreaker"
	"seismic/internal/concurrency"
	"seismic/internal/enginelog"
	"seismic/internal/forwardindex"
	"seismic/internal/indexing"
	"seismic/internal/query"
	"seismic/internal/segment"
	"seismic/internal/settings"
	"seismic/internal/sparsevec"
	"seismic/internal/storage/sqlitekv"
)

func main() {
	dataDir := flag.String("datadir", "./seismic-data", "directory for the sqlite-backed segment store and logs")
	memLimit := flag.Uint64("cache-bytes", 64<<20, "cache memory budget in bytes")
	k := flag.Int("k", 5, "top-k results to return")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	if err := enginelog.Init(*dataDir); err != nil {
		log.Fatalf("init engine log: %v", err)
	}
	defer enginelog.Close()

	backend, err := sqlitekv.Open(*dataDir + "/segments.db")
	if err != nil {
		log.Fatalf("open storage backend: %v", err)
	}
	defer backend.Close()

	enginelog.Info("seismicindex starting, SIMD path: %s", sparsevec.SIMDCapability())

	seg := segment.Key{SegmentUUID: segment.NewUUID(), Field: "body"}
	s := indexing.NewSegment(seg)

	docs := demoDocuments()
	for _, pairs := range docs {
		if _, err := s.AddDocument(pairs); err != nil {
			log.Fatalf("add document: %v", err)
		}
	}

	params := settings.DefaultFieldAlgoParams()
	params.AlgoTriggerDocCount = 1000 // force flat postings for this small demo corpus

	trainingPool := concurrency.NewTrainingPool()
	queryPool := concurrency.NewQueryPool()
	breaker := circuitbreaker.NewBudget(*memLimit)

	ctx := context.Background()
	result, err := indexing.Finalize(ctx, s, backend, params, trainingPool, breaker)
	if err != nil {
		log.Fatalf("finalize segment: %v", err)
	}
	if len(result.FailedTerms) > 0 {
		enginelog.Warn("seismicindex: %d terms failed during finalize", len(result.FailedTerms))
	}

	leaf := query.Leaf{
		Forward: forwardindex.NewFinalized(result.Disk, breaker),
		Posting: result.Store,
		DocIDs:  func() []uint32 { return docIDRange(uint32(s.DocCount())) },
	}

	queryVec, err := sparsevec.New(docs[0])
	if err != nil {
		log.Fatalf("build query vector: %v", err)
	}

	req := query.Request{
		QueryVec:    queryVec,
		QueryTokens: queryVec.Tokens(),
		K:           *k,
		HeapFactor:  params.HeapFactor,
		FlatPosting: true,
	}

	matches, err := query.SearchLeaves(ctx, []query.Leaf{leaf}, req, queryPool)
	if err != nil {
		log.Fatalf("search: %v", err)
	}

	fmt.Printf("top-%d matches for doc 0's own vector:\n", *k)
	for _, m := range matches {
		fmt.Printf("  doc_id=%d score=%.4f\n", m.DocID, m.Score)
	}
}

func demoDocuments() [][]sparsevec.Pair {
	return [][]sparsevec.Pair{
		{{Token: 1, Weight: 0.8}, {Token: 4, Weight: 0.3}, {Token: 9, Weight: 0.1}},
		{{Token: 1, Weight: 0.6}, {Token: 4, Weight: 0.4}},
		{{Token: 2, Weight: 0.9}, {Token: 9, Weight: 0.2}},
		{{Token: 3, Weight: 0.5}, {Token: 4, Weight: 0.1}, {Token: 2, Weight: 0.3}},
	}
}

func docIDRange(n uint32) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}
