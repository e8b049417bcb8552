//go:generate mockgen -source=../broker.go -destination=./mock_broker.go -package=mocks
//go:generate mockgen -source=../sink.go   -destination=./mock_sink.go   -package=mocks

package mocks
