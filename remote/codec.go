package remote

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"bringyour.com/coresync/core"
)

// Messages are framed as a protobuf `Struct`. Values that are not native to the struct
// model (integers, times, durations, entity descriptors) are tagged objects `{"@t": tag, ...}`
// so they decode to the same Go type they were encoded from.
// Strings that are not valid UTF-8 are tagged bytes, since protobuf string fields must be UTF-8.
// Times keep their instant and zone offset. The zone name is not sent, so a decoded time
// has a fixed zone and should be compared with `Equal`.

const (
	tagKey = "@t"

	tagInt      = "int"
	tagTime     = "time"
	tagDuration = "duration"
	tagEntity   = "entity"
	tagEntities = "entities"
	tagStrings  = "strings"
	tagBytes    = "bytes"
)

func ToStruct(message *Message) (*structpb.Struct, error) {
	if message.Payload == nil {
		return nil, fmt.Errorf("Message has no payload: %s", message.Path)
	}
	fields := map[string]*structpb.Value{
		"path":   encodeString(string(message.Path)),
		"member": encodeString(message.Member),
		"kind":   structpb.NewNumberValue(float64(message.Kind())),
		"seq":    structpb.NewStringValue(strconv.FormatUint(message.Sequence, 10)),
	}
	switch v := message.Payload.(type) {
	case *PropertyChanged:
		value, err := EncodeValue(v.Value)
		if err != nil {
			return nil, err
		}
		fields["value"] = value
	case *MethodCall:
		args, err := encodeValues(v.Args)
		if err != nil {
			return nil, err
		}
		fields["call"] = structpb.NewStringValue(v.CallId.String())
		fields["args"] = args
	case *MethodResult:
		value, err := EncodeValue(v.Value)
		if err != nil {
			return nil, err
		}
		fields["call"] = structpb.NewStringValue(v.CallId.String())
		fields["value"] = value
		fields["error"] = encodeString(v.Error)
		fields["code"] = structpb.NewStringValue(v.Code)
	case *CollectionDelta:
		fields["op"] = structpb.NewNumberValue(float64(v.Op))
		fields["index"] = structpb.NewNumberValue(float64(v.Index))
		fields["item"] = encodeDescriptor(v.Item)
	case *EventRaised:
		args, err := encodeValues(v.Args)
		if err != nil {
			return nil, err
		}
		fields["args"] = args
	case *CollectionSnapshot:
		items, err := EncodeValue(v.Items)
		if err != nil {
			return nil, err
		}
		fields["items"] = items
	default:
		return nil, fmt.Errorf("Unknown payload type: %T", v)
	}
	return &structpb.Struct{Fields: fields}, nil
}

func FromStruct(s *structpb.Struct) (*Message, error) {
	fields := s.GetFields()
	path, err := decodeString(fields["path"])
	if err != nil {
		return nil, err
	}
	member, err := decodeString(fields["member"])
	if err != nil {
		return nil, err
	}
	message := &Message{
		Path:   Path(path),
		Member: member,
	}
	if message.Path == "" {
		return nil, fmt.Errorf("Message has no path.")
	}
	if seqStr := fields["seq"].GetStringValue(); seqStr != "" {
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			return nil, err
		}
		message.Sequence = seq
	}

	parseCallId := func() (Id, error) {
		return ParseId(fields["call"].GetStringValue())
	}

	switch Kind(fields["kind"].GetNumberValue()) {
	case KindPropertyChanged:
		value, err := DecodeValue(fields["value"])
		if err != nil {
			return nil, err
		}
		message.Payload = &PropertyChanged{
			Value: value,
		}
	case KindMethodCall:
		callId, err := parseCallId()
		if err != nil {
			return nil, err
		}
		args, err := decodeValues(fields["args"])
		if err != nil {
			return nil, err
		}
		message.Payload = &MethodCall{
			CallId: callId,
			Args:   args,
		}
	case KindMethodResult:
		callId, err := parseCallId()
		if err != nil {
			return nil, err
		}
		value, err := DecodeValue(fields["value"])
		if err != nil {
			return nil, err
		}
		errorMessage, err := decodeString(fields["error"])
		if err != nil {
			return nil, err
		}
		message.Payload = &MethodResult{
			CallId: callId,
			Value:  value,
			Error:  errorMessage,
			Code:   fields["code"].GetStringValue(),
		}
	case KindCollectionDelta:
		item, err := decodeDescriptor(fields["item"].GetStructValue())
		if err != nil {
			return nil, err
		}
		message.Payload = &CollectionDelta{
			Op:    core.DeltaOp(fields["op"].GetNumberValue()),
			Index: int(fields["index"].GetNumberValue()),
			Item:  item,
		}
	case KindEventRaised:
		args, err := decodeValues(fields["args"])
		if err != nil {
			return nil, err
		}
		message.Payload = &EventRaised{
			Args: args,
		}
	case KindCollectionSnapshot:
		value, err := DecodeValue(fields["items"])
		if err != nil {
			return nil, err
		}
		items, ok := value.([]Descriptor)
		if !ok && value != nil {
			return nil, fmt.Errorf("Expected entities but found %T", value)
		}
		message.Payload = &CollectionSnapshot{
			Items: items,
		}
	default:
		return nil, fmt.Errorf("Unknown message kind: %v", fields["kind"].GetNumberValue())
	}
	return message, nil
}

func EncodeMessage(message *Message) ([]byte, error) {
	s, err := ToStruct(message)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func RequireEncodeMessage(message *Message) []byte {
	b, err := EncodeMessage(message)
	if err != nil {
		panic(err)
	}
	return b
}

func DecodeMessage(b []byte) (*Message, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return FromStruct(s)
}

func EncodeValue(value any) (*structpb.Value, error) {
	tagged := func(tag string, v *structpb.Value) *structpb.Value {
		return structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				tagKey: structpb.NewStringValue(tag),
				"v":    v,
			},
		})
	}
	taggedInt := func(i int64) *structpb.Value {
		return tagged(tagInt, structpb.NewStringValue(strconv.FormatInt(i, 10)))
	}

	switch v := value.(type) {
	case nil:
		return structpb.NewNullValue(), nil
	case bool:
		return structpb.NewBoolValue(v), nil
	case string:
		return encodeString(v), nil
	case float64:
		return structpb.NewNumberValue(v), nil
	case float32:
		return structpb.NewNumberValue(float64(v)), nil
	case time.Duration:
		return tagged(tagDuration, structpb.NewStringValue(strconv.FormatInt(int64(v), 10))), nil
	case int:
		return taggedInt(int64(v)), nil
	case int8:
		return taggedInt(int64(v)), nil
	case int16:
		return taggedInt(int64(v)), nil
	case int32:
		return taggedInt(int64(v)), nil
	case int64:
		return taggedInt(v), nil
	case uint8:
		return taggedInt(int64(v)), nil
	case uint16:
		return taggedInt(int64(v)), nil
	case uint32:
		return taggedInt(int64(v)), nil
	case time.Time:
		return tagged(tagTime, structpb.NewStringValue(v.Format(time.RFC3339Nano))), nil
	case Descriptor:
		return encodeDescriptor(v), nil
	case []Descriptor:
		items := make([]*structpb.Value, len(v))
		for i, descriptor := range v {
			items[i] = encodeDescriptor(descriptor)
		}
		return tagged(tagEntities, structpb.NewListValue(&structpb.ListValue{Values: items})), nil
	case []string:
		items := make([]*structpb.Value, len(v))
		for i, s := range v {
			items[i] = encodeString(s)
		}
		return tagged(tagStrings, structpb.NewListValue(&structpb.ListValue{Values: items})), nil
	case []any:
		return encodeValues(v)
	default:
		return nil, fmt.Errorf("Unsupported value type: %T", v)
	}
}

func DecodeValue(value *structpb.Value) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch v := value.GetKind().(type) {
	case nil, *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_BoolValue:
		return v.BoolValue, nil
	case *structpb.Value_StringValue:
		return v.StringValue, nil
	case *structpb.Value_NumberValue:
		return v.NumberValue, nil
	case *structpb.Value_ListValue:
		return decodeValues(value)
	case *structpb.Value_StructValue:
		fields := v.StructValue.GetFields()
		tagValue := fields[tagKey].GetStringValue()
		switch tagValue {
		case tagInt:
			return strconv.ParseInt(fields["v"].GetStringValue(), 10, 64)
		case tagDuration:
			nanos, err := strconv.ParseInt(fields["v"].GetStringValue(), 10, 64)
			if err != nil {
				return nil, err
			}
			return time.Duration(nanos), nil
		case tagTime:
			return time.Parse(time.RFC3339Nano, fields["v"].GetStringValue())
		case tagBytes:
			return decodeString(value)
		case tagEntity:
			return decodeDescriptor(v.StructValue)
		case tagEntities:
			items := fields["v"].GetListValue().GetValues()
			descriptors := make([]Descriptor, len(items))
			for i, item := range items {
				descriptor, err := decodeDescriptor(item.GetStructValue())
				if err != nil {
					return nil, err
				}
				descriptors[i] = descriptor
			}
			return descriptors, nil
		case tagStrings:
			items := fields["v"].GetListValue().GetValues()
			strs := make([]string, len(items))
			for i, item := range items {
				str, err := decodeString(item)
				if err != nil {
					return nil, err
				}
				strs[i] = str
			}
			return strs, nil
		default:
			return nil, fmt.Errorf("Unknown value tag: %q", tagValue)
		}
	default:
		return nil, fmt.Errorf("Unknown value kind: %T", v)
	}
}

func encodeValues(values []any) (*structpb.Value, error) {
	items := make([]*structpb.Value, len(values))
	for i, value := range values {
		item, err := EncodeValue(value)
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return structpb.NewListValue(&structpb.ListValue{Values: items}), nil
}

func decodeValues(value *structpb.Value) ([]any, error) {
	items := value.GetListValue().GetValues()
	values := make([]any, len(items))
	for i, item := range items {
		v, err := DecodeValue(item)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func encodeDescriptor(descriptor Descriptor) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			tagKey:     structpb.NewStringValue(tagEntity),
			"kind":     encodeString(descriptor.Kind),
			"instance": encodeString(descriptor.SourceCoreInstanceId),
			"id":       encodeString(descriptor.Id),
			"name":     encodeString(descriptor.Name),
		},
	})
}

func decodeDescriptor(s *structpb.Struct) (Descriptor, error) {
	if s == nil {
		return Descriptor{}, nil
	}
	fields := s.GetFields()
	if tagValue := fields[tagKey].GetStringValue(); tagValue != tagEntity {
		return Descriptor{}, fmt.Errorf("Expected entity but found %q", tagValue)
	}
	var descriptor Descriptor
	for key, out := range map[string]*string{
		"kind":     &descriptor.Kind,
		"instance": &descriptor.SourceCoreInstanceId,
		"id":       &descriptor.Id,
		"name":     &descriptor.Name,
	} {
		str, err := decodeString(fields[key])
		if err != nil {
			return Descriptor{}, err
		}
		*out = str
	}
	return descriptor, nil
}

func encodeString(s string) *structpb.Value {
	if utf8.ValidString(s) {
		return structpb.NewStringValue(s)
	}
	return structpb.NewStructValue(&structpb.Struct{
		Fields: map[string]*structpb.Value{
			tagKey: structpb.NewStringValue(tagBytes),
			"v":    structpb.NewStringValue(base64.StdEncoding.EncodeToString([]byte(s))),
		},
	})
}

// a plain string or tagged bytes. A missing value is the empty string.
func decodeString(value *structpb.Value) (string, error) {
	s := value.GetStructValue()
	if s == nil {
		return value.GetStringValue(), nil
	}
	fields := s.GetFields()
	if tagValue := fields[tagKey].GetStringValue(); tagValue != tagBytes {
		return "", fmt.Errorf("Expected string but found %q", tagValue)
	}
	b, err := base64.StdEncoding.DecodeString(fields["v"].GetStringValue())
	if err != nil {
		return "", err
	}
	return string(b), nil
}
