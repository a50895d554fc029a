// Package mocks provides test doubles for the geocode client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	geocode "github.com/sells-group/forks-fortunes/pkg/geocode"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// CityCenter provides a mock function with given fields: ctx, city, state
func (_m *MockClient) CityCenter(ctx context.Context, city string, state string) (*geocode.Result, error) {
	ret := _m.Called(ctx, city, state)

	if len(ret) == 0 {
		panic("no return value specified for CityCenter")
	}

	var r0 *geocode.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) (*geocode.Result, error)); ok {
		return rf(ctx, city, state)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string, string) *geocode.Result); ok {
		r0 = rf(ctx, city, state)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*geocode.Result)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string, string) error); ok {
		r1 = rf(ctx, city, state)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
