// Package benchmark provides performance benchmarks for onelogin.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare backends for one operation:
//
//	go test -bench='BenchmarkDestroyOthers' -benchmem -count=5 ./internal/tests/benchmark/... | tee bench.txt
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
