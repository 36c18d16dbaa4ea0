/*
 * upeep80 - Universal peephole optimizer for the Intel 8080 and Zilog Z80
 *
 * Copyright upeep80 authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package report

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/upeep80/upeep80/errors"
)

// InvalidQueryError is reported for jq expressions which cannot be parsed or compiled.
type InvalidQueryError struct {
	Query string
	Err   error
}

var _ errors.UserError = &InvalidQueryError{}

func (*InvalidQueryError) IsUserError() {}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query `%s`: %s", e.Query, e.Err)
}

func (e *InvalidQueryError) Unwrap() error {
	return e.Err
}

// Query runs the jq expression against the JSON form of the summary,
// and returns the emitted values.
func Query(ctx context.Context, summary *Summary, expression string) ([]any, error) {
	parsed, err := gojq.Parse(expression)
	if err != nil {
		return nil, &InvalidQueryError{
			Query: expression,
			Err:   err,
		}
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, &InvalidQueryError{
			Query: expression,
			Err:   err,
		}
	}

	input, err := jsonValue(summary)
	if err != nil {
		return nil, err
	}

	var results []any

	iter := code.RunWithContext(ctx, input)
	for {
		value, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := value.(error); ok {
			if haltErr, ok := err.(*gojq.HaltError); ok && haltErr.Value() == nil {
				break
			}
			return nil, err
		}
		results = append(results, value)
	}

	return results, nil
}

// jsonValue converts the value to the generic form gojq operates on.
func jsonValue(value any) (any, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}

	var decoded any
	err = json.Unmarshal(encoded, &decoded)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}
