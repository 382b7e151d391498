package actorutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskSuccess(t *testing.T) {

	assert := assert.New(t)

	var got int
	NewBackgroundTask(nil, func() (*int, error) {
		v := 42
		return &v, nil
	}).OnSuccess(func(v int) {
		got = v
	}).Run()

	assert.Equal(42, got, "task value delivered")
}

func TestBackgroundTaskRecoverValueDelivered(t *testing.T) {

	assert := assert.New(t)

	taskErr := errors.New("refresh failed")

	var got string
	NewBackgroundTask(nil, func() (*string, error) {
		return nil, taskErr
	}).Recover(func(err error) string {
		return "recovered: " + err.Error()
	}).OnSuccess(func(v string) {
		got = v
	}).Run()

	assert.Equal("recovered: refresh failed", got, "recovered value delivered, not the zero value")
}

func TestBackgroundTaskOnError(t *testing.T) {

	assert := assert.New(t)

	taskErr := errors.New("boom")

	var gotErr error
	successCalled := false
	NewBackgroundTask(nil, func() (*int, error) {
		return nil, taskErr
	}).OnError(func(err error) {
		gotErr = err
	}).OnSuccess(func(int) {
		successCalled = true
	}).Run()

	assert.Error(gotErr, "error handler invoked")
	assert.False(successCalled, "success handler not invoked on error")
}
