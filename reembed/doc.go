// Package reembed re-embeds every stored chunk with the current embedding
// model.
//
// Switching embedding models leaves stored vectors in the old model's space,
// where they no longer compare meaningfully against query vectors. Reembedder
// walks the store in batches, embeds each batch with retries, normalizes the
// vectors and writes them back, then updates the index manifest with the new
// model name and dimension. Progress is reported as percentage events.
package reembed
