// Package qa answers natural-language questions from the indexed chunks.
//
// An Answerer embeds the question with the same embedder used at ingestion,
// retrieves the nearest chunks (two by default) through a langchaingo
// retriever, stuffs them into a prompt and forwards it to the completion
// model. The Answer carries the model's text verbatim and the distinct
// source paths of the retrieved chunks in retrieval order.
//
// Asking before anything has been indexed returns ErrIndexEmpty.
package qa
