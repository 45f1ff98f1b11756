package core

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/yourusername/serverrequest/upload"
)

var fileType = reflect.TypeOf((*upload.File)(nil)).Elem()

// validateUploadedFiles walks tree depth-first and stops at the first node
// that is neither an upload.File nor a map, slice or array.
//
// A nil tree is empty and valid. The root must be a container; a lone
// file is rejected. There is no depth limit and no cycle detection.
func validateUploadedFiles(op string, tree any) error {
	if tree == nil {
		return nil
	}
	v := reflect.ValueOf(tree)
	if v.Type().Implements(fileType) || !isContainer(v.Kind()) {
		return &ValidationError{Op: op, Type: fmt.Sprintf("%T", tree), Err: ErrInvalidUploadedFilesStructure}
	}
	return walkUploads(op, v, "")
}

func walkUploads(op string, v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.Map:
		for _, k := range sortedKeys(v) {
			if err := checkUpload(op, v.MapIndex(k), path+"["+fmt.Sprint(k.Interface())+"]"); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkUpload(op, v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkUpload(op string, v reflect.Value, path string) error {
	if v.Kind() == reflect.Interface {
		if v.IsNil() {
			return &ValidationError{Op: op, Path: path, Type: "<nil>", Err: ErrInvalidUploadedFilesStructure}
		}
		v = v.Elem()
	}
	switch {
	case v.Type().Implements(fileType):
		return nil
	case isContainer(v.Kind()):
		return walkUploads(op, v, path)
	default:
		return &ValidationError{Op: op, Path: path, Type: v.Type().String(), Err: ErrInvalidUploadedFilesStructure}
	}
}

func isContainer(k reflect.Kind) bool {
	return k == reflect.Map || k == reflect.Slice || k == reflect.Array
}

// sortedKeys orders map keys by their printed form so that validation and
// snapshots visit them in a stable order.
func sortedKeys(m reflect.Value) []reflect.Value {
	keys := m.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

// checkParsedBody accepts nil, any map, a struct or a pointer to a struct.
func checkParsedBody(op string, body any) error {
	if body == nil {
		return nil
	}
	switch t := reflect.TypeOf(body); t.Kind() {
	case reflect.Map, reflect.Struct:
		return nil
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return nil
		}
	}
	return &ValidationError{Op: op, Type: fmt.Sprintf("%T", body), Err: ErrInvalidParsedBody}
}
