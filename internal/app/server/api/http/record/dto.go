package record

import (
	"changelog/internal/domain/record"
)

type listInput struct {
	Offset   int    `query:"offset" minimum:"0" default:"0" doc:"Сколько записей пропустить"`
	Limit    int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Размер страницы"`
	Author   string `query:"author" doc:"Только записи автора"`
	Category string `query:"category" doc:"Только записи категории"`
}

type listOutput struct {
	Body listResponse
}

type listResponse struct {
	Total int    `json:"total" doc:"Всего подходящих активных записей"`
	Items []item `json:"items"`
}

// item - запись с номером для отображения
type item struct {
	record.Record
	Ordinal string `json:"ordinal" example:"#3"`
}

type createInput struct {
	Body createRequest
}

type createRequest struct {
	Content  string `json:"content" minLength:"1" doc:"Текст записи"`
	Author   string `json:"author" minLength:"1" maxLength:"64" doc:"Автор"`
	Category string `json:"category,omitempty" doc:"Категория, до 20 символов"`
}

type findInput struct {
	ID string `path:"id" doc:"ID записи"`
}

type updateInput struct {
	ID   string `path:"id" doc:"ID записи"`
	Body updateRequest
}

type updateRequest struct {
	Content string `json:"content" minLength:"1" doc:"Новый текст"`
}

type output struct {
	Body item
}

type deleteOutput struct {
	Body response
}

type response struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
