package main

import (
	"compress/zlib"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

/*
chunked frame store. frames are collected in memory as compact float32
records and written out framesPerChunk at a time as zlib compressed gobs,
so memory use stays bounded for long runs.

gob doesn't write 0-value fields, so spheres sitting at an axis plane or
with zero radius cost less.
*/

type chunkindex map[uint32]map[uint32]chunksphere

type chunksphere struct {
	X, Y, Z float32
	Radius  float32
}

type chunkStore struct {
	dir           string
	chunkSize     int
	expectedSizes []int
	received      []int
	frames        chunkindex

	dumpers *sync.WaitGroup
	sem     chan struct{}
	m       *sync.Mutex
}

// lastFrame is the number of the last frame that will be stored.
func newChunkStore(dir string, lastFrame, framesPerChunk int) *chunkStore {
	cs := chunkStore{
		dir:           dir,
		chunkSize:     framesPerChunk,
		expectedSizes: make([]int, lastFrame/framesPerChunk+1),
		received:      make([]int, lastFrame/framesPerChunk+1),
		frames:        make(chunkindex, lastFrame+1),

		dumpers: &sync.WaitGroup{},
		sem:     make(chan struct{}, 4),
		m:       &sync.Mutex{},
	}
	for frame := 0; frame <= lastFrame; frame++ {
		cs.expectedSizes[frame/cs.chunkSize]++
	}
	return &cs
}

func (cs *chunkStore) finishedFrame(frame uint32, frameData map[uint32]chunksphere) {
	cs.m.Lock()
	cnum := int(frame) / cs.chunkSize
	cs.frames[frame] = frameData
	cs.received[cnum]++
	full := cs.received[cnum] == cs.expectedSizes[cnum]
	var dump chunkindex
	if full {
		lo, hi := chunkToFrames(cnum, cs.chunkSize)
		dump = make(chunkindex, cs.chunkSize)
		for f := lo; f <= hi; f++ {
			if d, ok := cs.frames[uint32(f)]; ok {
				dump[uint32(f)] = d
				delete(cs.frames, uint32(f))
			}
		}
	}
	cs.m.Unlock()

	// metered file writing, keeping track of running dumpers
	if full {
		cs.dumpers.Add(1)
		go func() {
			defer cs.dumpers.Done()
			cs.sem <- struct{}{}
			defer func() { <-cs.sem }()
			if err := cs.dump(cnum, dump); err != nil {
				panic(err)
			}
		}()
	}
}

func (cs *chunkStore) dump(chunk int, frames chunkindex) error {
	start := time.Now()
	_, hi := chunkToFrames(chunk, cs.chunkSize)
	name := filepath.Join(cs.dir, fmt.Sprintf("%010d.chunk", hi))

	file, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "create chunk")
	}
	defer file.Close()

	zw, err := zlib.NewWriterLevel(file, zlib.DefaultCompression)
	if err != nil {
		return errors.Wrap(err, "zlib")
	}
	if err := gob.NewEncoder(zw).Encode(frames); err != nil {
		zw.Close()
		return errors.Wrapf(err, "encode chunk %d", chunk)
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "flush chunk %d", chunk)
	}
	info, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, "stat chunk")
	}
	fmt.Printf("%s to dump chunk %d, %d bytes\n", time.Since(start).Truncate(time.Millisecond), chunk, info.Size())
	return nil
}

// flush writes out partially filled chunks, then waits for every dump.
func (cs *chunkStore) flush() error {
	cs.m.Lock()
	partial := map[int]chunkindex{}
	for f, d := range cs.frames {
		cnum := int(f) / cs.chunkSize
		if partial[cnum] == nil {
			partial[cnum] = chunkindex{}
		}
		partial[cnum][f] = d
		delete(cs.frames, f)
	}
	cs.m.Unlock()

	cs.dumpers.Wait()
	for cnum, frames := range partial {
		if err := cs.dump(cnum, frames); err != nil {
			return err
		}
	}
	return nil
}

func chunkToFrames(chunkNumber, chunkSize int) (lowIndex, highIndex int) {
	// inclusive indicies
	return chunkNumber * chunkSize, (chunkNumber+1)*chunkSize - 1
}

func frameToChunks(cs *chunkStore, wg *sync.WaitGroup, ch chan *frameJob) {
	defer wg.Done()
	for job := range ch {
		frameData := make(map[uint32]chunksphere, len(job.Spheres))
		for _, s := range job.Spheres {
			frameData[uint32(s.ID)] = chunksphere{
				X:      float32(s.X),
				Y:      float32(s.Y),
				Z:      float32(s.Z),
				Radius: float32(s.Radius),
			}
		}
		cs.finishedFrame(uint32(job.Frame), frameData)
	}
	if err := cs.flush(); err != nil {
		panic(err)
	}
}

// readChunk decodes a chunk file written by dump.
func readChunk(filename string) (chunkindex, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "open chunk")
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, errors.Wrapf(err, "zlib %s", filename)
	}
	defer zr.Close()

	var frames chunkindex
	if err := gob.NewDecoder(zr).Decode(&frames); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filename)
	}
	return frames, nil
}
