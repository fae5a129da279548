/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFOptions controls PDF export.
// The page is sized to the image at 1px = 1pt; a caption strip below the
// image is added when Caption is set.
type PDFOptions struct {
	Title   string
	Caption string
	Created time.Time
}

const captionHeight = 24.0

// WritePDF writes img as a single-page PDF at outPath.
func WritePDF(outPath string, img image.Image, opt PDFOptions) error {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	pageH := h
	if opt.Caption != "" {
		pageH += captionHeight
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: w, Ht: pageH},
	})
	title := opt.Title
	if title == "" {
		title = "Doodle"
	}
	pdf.SetTitle(title, true)
	pdf.SetAuthor("livedoodle", false)
	if !opt.Created.IsZero() {
		pdf.SetCreationDate(opt.Created)
	}
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode pdf image: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("doodle", opts, &buf)
	pdf.ImageOptions("doodle", 0, 0, w, h, false, opts, 0, "")

	if opt.Caption != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.Text(6, h+captionHeight/2+3, opt.Caption)
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
