// Package copybench measures the device-side latency of copying one BGRA8
// texture into another on a GPU, using three strategies:
//
//   - pixel-blit: a full-screen quad whose pixel shader samples the source
//   - compute-copy: a dispatch copying one texel per invocation, benchmarked
//     once per thread-group size (1, 2, 4, 8 and 16 by default)
//   - direct-copy: a whole-resource copy with no shader involved
//
// # Quick Start
//
//	results, err := copybench.Run(context.Background())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, r := range results {
//	    fmt.Printf("%s g%d: %.1f us\n", r.Strategy, r.GroupSize, r.AvgMicroseconds)
//	}
//
// # Measurement
//
// Every strategy is set up once: textures, the upload of the source image,
// pipelines and view tables are built before timing starts. Each iteration
// then records the copy between two GPU timestamps, reads the destination
// back, returns every texture to its steady state and is waited on before
// the next iteration is recorded. The reported average is the mean of
// 16384 such iterations by default.
//
// # Devices
//
// WithBackend chooses the HAL backend. "auto" tries Vulkan, Metal, DX12, GL
// and the software rasterizer, and prefers discrete over integrated
// adapters. "sim" runs on a simulated device that validates every residency
// transition; it needs no GPU.
//
// # Errors
//
// Any failure aborts the run. Use errors.Is with ErrAllocationFailure,
// ErrCompileFailure, ErrSubmissionFailure and the other exported sentinels
// to classify it.
package copybench
