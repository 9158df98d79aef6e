// Package mocks provides test doubles for the browser package.
package mocks

import (
	"context"
	"time"

	browser "github.com/sells-group/postal-enrich/pkg/browser"
	mock "github.com/stretchr/testify/mock"
)

// MockLauncher is a mock type for the Launcher interface.
type MockLauncher struct {
	mock.Mock
}

// NewSession provides a mock function with given fields: ctx
func (_m *MockLauncher) NewSession(ctx context.Context) (browser.Session, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for NewSession")
	}

	var r0 browser.Session
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(browser.Session)
	}
	return r0, ret.Error(1)
}

// MockSession is a mock type for the Session interface.
type MockSession struct {
	mock.Mock
}

// Navigate provides a mock function with given fields: url
func (_m *MockSession) Navigate(url string) error {
	return _m.Called(url).Error(0)
}

// Fill provides a mock function with given fields: id, value
func (_m *MockSession) Fill(id string, value string) error {
	return _m.Called(id, value).Error(0)
}

// Click provides a mock function with given fields: id
func (_m *MockSession) Click(id string) error {
	return _m.Called(id).Error(0)
}

// WaitVisible provides a mock function with given fields: selector, timeout
func (_m *MockSession) WaitVisible(selector string, timeout time.Duration) error {
	return _m.Called(selector, timeout).Error(0)
}

// PageSource provides a mock function with no fields
func (_m *MockSession) PageSource() (string, error) {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for PageSource")
	}

	return ret.String(0), ret.Error(1)
}

// Close provides a mock function with no fields
func (_m *MockSession) Close() {
	_m.Called()
}

// NewMockLauncher creates a new instance of MockLauncher and registers
// cleanup to assert expectations.
func NewMockLauncher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLauncher {
	m := &MockLauncher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewMockSession creates a new instance of MockSession and registers cleanup
// to assert expectations.
func NewMockSession(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSession {
	m := &MockSession{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
