// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for docqa.
//
// This package defines repository interfaces that decouple the index store
// from ingestion and question answering. BadgerDB is the only backend today;
// see the badger subpackage.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - ChunkRepository: append, update, iterate and search embedded chunks
//   - ManifestRepository: the description of the last index build
//   - VectorSearcher: vector similarity search operations
//   - VectorStore: a langchaingo vector store over a ChunkRepository
//
// Records are encoded with mus-go serializers defined in package core
// (see MarshalChunk and MarshalManifest).
//
// # Usage
//
// Open a writable store for ingestion:
//
//	backend, err := badger.OpenBackend("db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	chunks, err := badger.NewChunkRepository(backend)
//
// Question answering opens the store read-only so it can run while an
// ingestion process holds the write lock:
//
//	backend, err := badger.OpenReadOnlyBackend("db")
//
// Use in tests with in-memory storage:
//
//	chunks, manifests, backend, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
