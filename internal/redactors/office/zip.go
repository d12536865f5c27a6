// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package office

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// zipContents holds the entries of an Office package in archive order.
type zipContents struct {
	headers []zip.FileHeader
	files   map[string][]byte // filename -> content
}

// readZip extracts every entry of the package at path.
func readZip(path string) (*zipContents, error) {
	reader, err := zip.OpenReader(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open ZIP file: %w", err)
	}
	defer reader.Close()

	contents := &zipContents{files: make(map[string][]byte, len(reader.File))}
	for _, file := range reader.File {
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file.Name, err)
		}
		contents.headers = append(contents.headers, file.FileHeader)
		contents.files[file.Name] = content
	}
	return contents, nil
}

// names returns the entry names in archive order.
func (z *zipContents) names() []string {
	out := make([]string, len(z.headers))
	for i, h := range z.headers {
		out[i] = h.Name
	}
	return out
}

// write repackages the entries to outputPath, keeping their order and
// compression method.
func (z *zipContents) write(outputPath string) error {
	outFile, err := os.Create(filepath.Clean(outputPath))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	zipWriter := zip.NewWriter(outFile)
	for _, h := range z.headers {
		fileWriter, err := zipWriter.CreateHeader(&zip.FileHeader{
			Name:     h.Name,
			Method:   h.Method,
			Modified: h.Modified,
		})
		if err != nil {
			outFile.Close()
			return fmt.Errorf("failed to create ZIP entry for %s: %w", h.Name, err)
		}
		if _, err := fileWriter.Write(z.files[h.Name]); err != nil {
			outFile.Close()
			return fmt.Errorf("failed to write content for %s: %w", h.Name, err)
		}
	}
	if err := zipWriter.Close(); err != nil {
		outFile.Close()
		return fmt.Errorf("failed to finish ZIP: %w", err)
	}
	return outFile.Close()
}
