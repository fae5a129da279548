//go:build gst

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package source

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	applog "livedoodle/internal/log"
)

// Camera captures from a V4L2 device through a GStreamer pipeline:
//
//	v4l2src → videoconvert → videoscale → capsfilter(RGBA) → appsink
//
// The appsink keeps only the newest frame.
type Camera struct {
	pipeline *gst.Pipeline
	frames   chan []byte
	errs     chan error
	w, h     int
	buf      *image.RGBA
	stop     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

// OpenCamera builds and starts the capture pipeline.
func OpenCamera(cfg Config) (Source, error) {
	gst.Init(nil)
	w, h := cfg.size()
	device := cfg.Device
	if device == "" {
		device = "/dev/video0"
	}
	lg := applog.WithComponent("source").With(slog.String("device", device))

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, fmt.Errorf("create v4l2src: %w", err)
	}
	src.SetProperty("device", device)
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("create videoscale: %w", err)
	}
	caps, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("create capsfilter: %w", err)
	}
	caps.SetProperty("caps", gst.NewCapsFromString(fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d", w, h)))
	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)

	if err := pipeline.AddMany(src, convert, scale, caps, sink.Element); err != nil {
		return nil, fmt.Errorf("add elements: %w", err)
	}
	if err := gst.ElementLinkMany(src, convert, scale, caps, sink.Element); err != nil {
		return nil, fmt.Errorf("link elements: %w", err)
	}

	c := &Camera{
		pipeline: pipeline,
		frames:   make(chan []byte, 1),
		errs:     make(chan error, 1),
		w:        w,
		h:        h,
		buf:      image.NewRGBA(image.Rect(0, 0, w, h)),
		stop:     make(chan struct{}),
		log:      lg,
	}
	sink.SetCallbacks(&app.SinkCallbacks{NewSampleFunc: c.onSample})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("start pipeline: %w", err)
	}
	go c.watchBus()
	lg.Info("camera initialized", slog.Int("width", w), slog.Int("height", h))
	return c, nil
}

func (c *Camera) onSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	buffer.Unmap()

	// drop the stale frame, keep the newest
	select {
	case <-c.frames:
	default:
	}
	select {
	case c.frames <- frame:
	default:
	}
	return gst.FlowOK
}

func (c *Camera) watchBus() {
	bus := c.pipeline.GetPipelineBus()
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageError:
			gerr := msg.ParseError()
			c.log.Error("pipeline error", slog.String("err", gerr.Error()), slog.String("debug", gerr.DebugString()))
			select {
			case c.errs <- fmt.Errorf("camera: %s", gerr.Error()):
			default:
			}
		case gst.MessageEOS:
			select {
			case c.errs <- ErrEmptyFrame:
			default:
			}
		}
	}
}

// Next waits for the newest frame. The returned image is reused.
func (c *Camera) Next(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-c.errs:
		return nil, err
	case data := <-c.frames:
		if len(data) < len(c.buf.Pix) {
			return nil, ErrEmptyFrame
		}
		copy(c.buf.Pix, data)
		return c.buf, nil
	}
}

func (c *Camera) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		err = c.pipeline.SetState(gst.StateNull)
	})
	return err
}
