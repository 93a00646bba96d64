package model

import (
	"bufio"
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/grf/pkg/errors"
)

// formatHeader prefixes every saved model so that foreign files are rejected
// before gob decoding starts.
const formatHeader = "grf-model/1\n"

// SaveModel writes model to filename with gob.
//
// Example:
//
//	rf := ensemble.NewRegressionForest()
//	// ... fit ...
//	err := model.SaveModel(rf, "forest.gob")
func SaveModel(model interface{}, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create model file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close model file")
		}
	}()

	w := bufio.NewWriter(file)
	if err := SaveModelToWriter(model, w); err != nil {
		return err
	}
	return errors.Wrap(w.Flush(), "flush model file")
}

// LoadModel reads a model written by SaveModel into model, which must be a pointer.
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "open model file")
	}
	defer file.Close()

	return LoadModelFromReader(model, bufio.NewReader(file))
}

// SaveModelToWriter writes the format header and the gob encoding of model to w.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	if _, err := io.WriteString(w, formatHeader); err != nil {
		return errors.Wrap(err, "write model header")
	}
	if err := gob.NewEncoder(w).Encode(model); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModelFromReader reads a model written by SaveModelToWriter.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	header := make([]byte, len(formatHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return errors.Wrap(err, "read model header")
	}
	if string(header) != formatHeader {
		return errors.NewValueError("LoadModel", "not a grf model stream")
	}
	if err := gob.NewDecoder(r).Decode(model); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
