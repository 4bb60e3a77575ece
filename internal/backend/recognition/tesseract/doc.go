// Package tesseract provides a local recognition engine backed by the
// Tesseract OCR library. It needs cgo and the tesseract/leptonica headers and
// is only compiled with the "tesseract" build tag; importing it registers the
// engine under the name "tesseract".
package tesseract
