package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // 로그인 필요
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // 잘못된 이메일/비밀번호
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // 토큰 만료
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // 잘못된 토큰
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // 토큰 폐기됨
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // 이메일 중복
	AuthWeakPassword       = "AUTH_WEAK_PASSWORD"       // 비밀번호 규칙 위반

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // 접근 권한 없음
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // 관리자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 상품 (PRODUCT_) ====================
	ProductNotFound   = "PRODUCT_NOT_FOUND"         // 상품 없음
	VariantNotFound   = "PRODUCT_VARIANT_NOT_FOUND" // 옵션 조합 없음
	ProductOutOfStock = "PRODUCT_OUT_OF_STOCK"      // 재고 부족

	// ==================== 장바구니 (CART_) ====================
	CartItemNotFound       = "CART_ITEM_NOT_FOUND"        // 장바구니 항목 없음
	CartInvalidQuantity    = "CART_INVALID_QUANTITY"      // 잘못된 수량
	CartEmpty              = "CART_EMPTY"                 // 장바구니 비어 있음
	CartAddressRequired    = "CART_ADDRESS_REQUIRED"      // 배송지 미입력
	CartAddressUndelivered = "CART_ADDRESS_UNDELIVERABLE" // 배송 불가 주소
	CartPaymentRequired    = "CART_PAYMENT_REQUIRED"      // 결제수단 미등록
	CartNotSaved           = "CART_NOT_SAVED"             // 장바구니 저장 실패

	// ==================== 주문/결제 (ORDER_) ====================
	OrderNotFound         = "ORDER_NOT_FOUND"          // 주문 없음
	OrderPaymentDeclined  = "ORDER_PAYMENT_DECLINED"   // 결제 거절
	OrderShippingRateGone = "ORDER_SHIPPING_RATE_GONE" // 배송 요금 없음

	// ==================== 요청 (REQUEST_) ====================
	RequestSuperseded = "REQUEST_SUPERSEDED" // 더 최근 요청으로 대체됨

	// ==================== 업로드 (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE" // 잘못된 파일 형식
	UploadFailed          = "UPLOAD_FAILED"            // 업로드 실패

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // 설정 오류
)
