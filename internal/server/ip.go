package server

import (
	"net"
	"net/http"
	"strings"
)

// clientIP 는 /collect 를 호출한 프로세스의 주소.
// 수집 대상은 주로 같은 VPC 안의 프로세스이므로 private 주소도 그대로 쓴다.
//
// 우선순위:
//  1. X-Forwarded-For 의 첫 번째 유효한 IP (프록시/ALB 뒤)
//  2. RemoteAddr
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return ""
}
