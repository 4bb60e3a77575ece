//go:build tesseract

package main

// registers the local "tesseract" recognition engine
import _ "github.com/jo-hoe/cardreader/internal/backend/recognition/tesseract"
