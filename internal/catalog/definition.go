package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
)

// DefaultBatchSize is used when an event source does not set batchSize.
const DefaultBatchSize = 10

var validate = validator.New()

// Definition is the declared identity of one polled queue.
type Definition struct {
	Function  string `validate:"required"`
	QueueName string `validate:"required"`
	ARN       string `validate:"required"`
	Region    string `validate:"required"`
	AccountID string
	Enabled   bool
	BatchSize int `validate:"gte=1,lte=10000"`
}

// NewDefinition parses a raw sqs event value. raw is either an ARN string or an
// object with optional arn, queueName, batchSize and enabled keys. arn may be a
// {"Fn::GetAtt": [LogicalId, "Arn"]} reference into resources.
func NewDefinition(function string, raw any, region, accountID string, resources map[string]Resource) (Definition, error) {
	def := Definition{
		Function:  function,
		Region:    region,
		AccountID: accountID,
		Enabled:   true,
		BatchSize: DefaultBatchSize,
	}

	switch v := raw.(type) {
	case string:
		def.ARN = v
	case map[string]any:
		fields := lowerKeys(v)
		if arn, ok := fields["arn"]; ok {
			resolved, err := resolveARN(arn, region, accountID, resources)
			if err != nil {
				return Definition{}, err
			}
			def.ARN = resolved
		}
		if qn, ok := fields["queuename"]; ok {
			def.QueueName = cast.ToString(qn)
		}
		if bs, ok := fields["batchsize"]; ok {
			n, err := cast.ToIntE(bs)
			if err != nil {
				return Definition{}, fmt.Errorf("invalid batchSize: %w", err)
			}
			def.BatchSize = n
		}
		if en, ok := fields["enabled"]; ok {
			b, err := cast.ToBoolE(en)
			if err != nil {
				return Definition{}, fmt.Errorf("invalid enabled: %w", err)
			}
			def.Enabled = b
		}
	case nil:
		return Definition{}, errors.New("missing sqs definition")
	default:
		return Definition{}, fmt.Errorf("unsupported sqs definition type %T", raw)
	}

	if def.QueueName == "" && def.ARN != "" {
		def.QueueName = QueueNameFromARN(def.ARN)
	}
	if def.ARN == "" && def.QueueName != "" {
		def.ARN = BuildARN(region, accountID, def.QueueName)
	}

	if err := validate.Struct(def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// BuildARN returns arn:aws:sqs:{region}:{accountId}:{queueName}.
func BuildARN(region, accountID, queueName string) string {
	return fmt.Sprintf("arn:aws:sqs:%s:%s:%s", region, accountID, queueName)
}

// QueueNameFromARN returns the last colon-separated segment of arn.
func QueueNameFromARN(arn string) string {
	if i := strings.LastIndex(arn, ":"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}

func resolveARN(arn any, region, accountID string, resources map[string]Resource) (string, error) {
	switch v := arn.(type) {
	case string:
		return v, nil
	case map[string]any:
		ref, ok := lowerKeys(v)["fn::getatt"]
		if !ok {
			return "", errors.New("unsupported arn reference")
		}
		logicalID, err := getAttTarget(ref)
		if err != nil {
			return "", err
		}
		name := logicalID
		if res, ok := resources[logicalID]; ok {
			if qn, ok := res.Properties["QueueName"].(string); ok && qn != "" {
				name = qn
			}
		}
		return BuildARN(region, accountID, name), nil
	default:
		return "", fmt.Errorf("unsupported arn type %T", arn)
	}
}

// getAttTarget accepts both [LogicalId, Attr] and "LogicalId.Attr".
func getAttTarget(ref any) (string, error) {
	switch v := ref.(type) {
	case []any:
		if len(v) == 0 {
			return "", errors.New("empty Fn::GetAtt")
		}
		return cast.ToString(v[0]), nil
	case string:
		id, _, _ := strings.Cut(v, ".")
		return id, nil
	default:
		return "", fmt.Errorf("unsupported Fn::GetAtt type %T", ref)
	}
}

func lowerKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
