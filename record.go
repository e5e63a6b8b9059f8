package nfsblk

import (
	"bytes"
	"encoding/binary"
	"reflect"
)

// marshalRecord and unmarshalRecord walk a fixed-layout struct's
// exported fields in declaration order and binary.Write/Read each one.
// Grounded on the teacher's Superblock.UnmarshalBinary/binarySize,
// which does the same exported-field walk (checking that the field
// name's first byte is an uppercase ASCII letter, rather than the
// newer reflect.StructField.IsExported, matching the teacher's idiom)
// but only in the read direction; here the same loop drives both
// directions so super/inode/dentry records share one definition.
func isExportedField(name string) bool {
	c := name[0]
	return c >= 'A' && c <= 'Z'
}

func recordSize(v any) int {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	sz := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isExportedField(f.Name) {
			continue
		}
		sz += int(f.Type.Size())
	}
	return sz
}

func marshalRecord(order binary.ByteOrder, v any) ([]byte, error) {
	buf := new(bytes.Buffer)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isExportedField(f.Name) {
			continue
		}
		if err := binary.Write(buf, order, rv.Field(i).Interface()); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func unmarshalRecord(order binary.ByteOrder, data []byte, v any) error {
	r := bytes.NewReader(data)
	rv := reflect.ValueOf(v).Elem()
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !isExportedField(f.Name) {
			continue
		}
		if err := binary.Read(r, order, rv.Field(i).Addr().Interface()); err != nil {
			return err
		}
	}
	return nil
}
