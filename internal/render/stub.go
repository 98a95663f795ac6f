//go:build !cgo

package render

import "image"

func Pages(doc []byte, dpi int) ([]image.Image, error) {
	return nil, ErrUnavailable
}

func PageTexts(doc []byte) ([]string, error) {
	return nil, ErrUnavailable
}

func Available() bool { return false }
